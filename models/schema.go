package models

// All 回傳所有需要建立資料表的模型，順序符合外鍵相依關係
func All() []any {
	return []any{
		&User{},
		&Region{},
		&City{},
		&Brand{},
		&CarModel{},
		&Category{},
		&FuelType{},
		&TransmissionType{},
		&BodyType{},
		&DriveType{},
		&Listing{},
		&ListingImage{},
		&ModerationEvent{},
	}
}
