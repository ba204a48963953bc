package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DocumentStatus 文档处理状态类型
type DocumentStatus string

const (
	// DocStatusPending 文档已登记，等待处理
	DocStatusPending DocumentStatus = "pending"
	// DocStatusProcessing 文档处理中
	DocStatusProcessing DocumentStatus = "processing"
	// DocStatusReady 文档处理完成，可用于问答和出题
	DocStatusReady DocumentStatus = "ready"
	// DocStatusFailed 文档处理失败
	DocStatusFailed DocumentStatus = "failed"
)

// statusTransitions 状态机转换表
// 键为当前状态，值为允许转入的目标状态集合
// failed和ready允许重新进入processing，支持文档重新处理
var statusTransitions = map[DocumentStatus][]DocumentStatus{
	DocStatusPending:    {DocStatusProcessing},
	DocStatusProcessing: {DocStatusReady, DocStatusFailed},
	DocStatusReady:      {DocStatusProcessing},
	DocStatusFailed:     {DocStatusProcessing},
}

// CanTransition 检查状态转换是否合法
func CanTransition(from, to DocumentStatus) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Document 文档数据模型
// 记录用户文档的归属、来源和处理生命周期
type Document struct {
	ID           string         `gorm:"primaryKey"`         // 文档ID，主键
	OwnerID      string         `gorm:"not null;index"`     // 文档所有者ID
	FileName     string         `gorm:"not null"`           // 文件名
	SourceURL    string         `gorm:"not null"`           // 文档来源地址
	Status       DocumentStatus `gorm:"not null;index"`     // 处理状态
	Error        string         `gorm:"type:text"`          // 处理失败时的错误信息
	ChunkCount   int            `gorm:"not null;default:0"` // 已入库的分块数量
	PageCount    int            `gorm:"default:0"`          // 页数（PDF文档）
	DocumentType string         `gorm:"size:20"`            // 文档类型：pdf、text、unknown
	CreatedAt    time.Time      `gorm:"not null;index"`     // 创建时间
	UpdatedAt    time.Time      `gorm:"not null"`           // 更新时间
	ProcessedAt  *time.Time     `gorm:"index"`              // 处理完成时间
	Metadata     datatypes.JSON `gorm:"type:json"`          // 元数据，JSON格式
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间和初始状态
func (d *Document) BeforeCreate(tx *gorm.DB) (err error) {
	now := time.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	if d.Status == "" {
		d.Status = DocStatusPending
	}
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (d *Document) BeforeUpdate(tx *gorm.DB) (err error) {
	d.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (Document) TableName() string {
	return "documents"
}

// SetMetadata 将元数据序列化后写入文档
func (d *Document) SetMetadata(meta map[string]interface{}) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	d.Metadata = datatypes.JSON(data)
	return nil
}

// GetMetadata 解析文档的元数据
// 未设置元数据时返回空映射
func (d *Document) GetMetadata() (map[string]interface{}, error) {
	if len(d.Metadata) == 0 {
		return map[string]interface{}{}, nil
	}

	var meta map[string]interface{}
	if err := json.Unmarshal(d.Metadata, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}
