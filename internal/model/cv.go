package model

// UserCV 用户上传的简历及其提取结果，创建路线图时作为背景上下文
type UserCV struct {
	BaseModel
	UserID      uint   `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	FileName    string `gorm:"size:255" json:"fileName"`
	ObjectKey   string `gorm:"size:512" json:"objectKey"` // MinIO 中的对象键
	RawText     string `gorm:"type:longtext" json:"-"`    // 提取出的纯文本
	Summary     string `gorm:"type:text" json:"summary"`  // 模型总结的经验/领域信息
	SizeBytes   int64  `gorm:"default:0" json:"sizeBytes"`
	ContentType string `gorm:"size:100" json:"contentType"`
}

func (UserCV) TableName() string {
	return "user_cvs"
}
