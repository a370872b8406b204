package biz

import "context"

// IndexSink 索引写入端（外部协作方），内部可批量缓冲。
type IndexSink interface {
	// Add 不做存在性检查直接写入。
	Add(ctx context.Context, doc *Document) error
	// Create 语义同 Add，用于更新路径。
	Create(ctx context.Context, doc *Document) error
	// Update 按复合 ID 更新已存在的文档。
	Update(ctx context.Context, doc *Document) error
	// UpdateOrCreate 先按复合 ID 检查是否存在，再分派到 Update 或 Create。
	UpdateOrCreate(ctx context.Context, doc *Document) error
	// Delete 删除 place_id 对应的全部文档（含门牌变体）。
	Delete(ctx context.Context, placeID int64) error
	// Finish 刷新缓冲，无待写内容时也必须安全。
	Finish(ctx context.Context) error
}
