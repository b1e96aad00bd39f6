package model

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// KeyIndex 自然键唯一索引名.
const KeyIndex = "uq_crashes_key"

// Crashes 某天某个源文件上的一条新签名证据.
// 自然键为 (product, channel, date, directory, file, url)；长文本列不进索引，由 DirHash 与 KeyHash 代替.
type Crashes struct {
	ID        uint   `gorm:"primaryKey"                                                               json:"id"`
	Product   string `gorm:"size:20;index:idx_crashes_scope,priority:1;uniqueIndex:uq_crashes_key,priority:1" json:"product"`
	Channel   string `gorm:"size:20;index:idx_crashes_scope,priority:2;uniqueIndex:uq_crashes_key,priority:2" json:"channel"`
	Date      string `gorm:"size:10;index:idx_crashes_scope,priority:3;uniqueIndex:uq_crashes_key,priority:3" json:"date"` // YYYY-MM-DD
	DirHash   string `gorm:"size:16;index:idx_crashes_scope,priority:4"                               json:"-"`
	KeyHash   string `gorm:"size:16;uniqueIndex:uq_crashes_key,priority:4"                            json:"-"`
	Directory string `gorm:"type:text"                                                                json:"directory"`
	File      string `gorm:"type:text"                                                                json:"file"`
	URL       string `gorm:"type:text"                                                                json:"url"`
	Count     int    `json:"count"`
	Signature string `gorm:"type:text"                                                                json:"signature"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 表名.
func (Crashes) TableName() string { return "crashes" }

// DirHash 目录的 xxhash，十六进制定长.
func DirHash(directory string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(directory))
}

// KeyHash 目录、文件名与链接的 xxhash，与 (product, channel, date) 一起唯一确定一条证据.
func KeyHash(directory, file, url string) string {
	d := xxhash.New()
	_, _ = d.WriteString(directory)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(file)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(url)

	return fmt.Sprintf("%016x", d.Sum64())
}

// NewCrashes 构造一条证据并填好键哈希.
func NewCrashes(product, channel, date, directory, file, url string, count int, signature string) *Crashes {
	return &Crashes{
		Product:   product,
		Channel:   channel,
		Date:      date,
		DirHash:   DirHash(directory),
		KeyHash:   KeyHash(directory, file, url),
		Directory: directory,
		File:      file,
		URL:       url,
		Count:     count,
		Signature: signature,
	}
}
