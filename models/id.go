package models

import "github.com/google/uuid"

// assignID 在主鍵尚未設定時產生 UUIDv7，讓主鍵依建立時間排序
func assignID(id *uuid.UUID) error {
	if *id != uuid.Nil {
		return nil
	}
	v, err := uuid.NewV7()
	if err != nil {
		return err
	}
	*id = v
	return nil
}
