package entities

type Tag struct {
	ID    uint   `gorm:"primarykey" json:"id"`
	Name  string `gorm:"size:200;uniqueIndex;not null" json:"name"`
	Slug  string `gorm:"size:50;uniqueIndex;not null" json:"slug"`
	Color string `gorm:"size:7;uniqueIndex;not null" json:"color"`

	Timestamp
}
