package models

import (
	"time"
)

// File is the metadata row for one stored upload. UserID is the owning
// profile and never changes after creation.
type File struct {
	FileID       uint64    `gorm:"column:fileid;primaryKey;autoIncrement" json:"fileid"`
	UserID       uint64    `gorm:"column:userid;index;not null" json:"userid"`
	Filename     string    `gorm:"type:varchar(255);not null" json:"filename"`
	OriginalName string    `gorm:"column:originalname;type:varchar(255);not null" json:"originalname"`
	FilePath     string    `gorm:"column:filepath;type:varchar(1024);not null" json:"filepath"`
	FileSize     int64     `gorm:"column:filesize;not null" json:"filesize"`
	MimeType     string    `gorm:"column:mimetype;type:varchar(255)" json:"mimetype"`
	UploadedAt   time.Time `gorm:"column:uploaded_at;autoCreateTime;index" json:"uploaded_at"`
}

func (File) TableName() string {
	return "files"
}
