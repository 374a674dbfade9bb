package listing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"

	"github.com/google/uuid"
	"gorm.io/gorm"

	internalS3 "carlot/adapters/s3"
	"carlot/models"
)

// Upload 是一個待上傳的檔案
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadImage 為刊登新增一張照片，順序接在現有照片之後
// 檢查順序: 數量上限 -> 是否有檔案 -> 檔案類型 -> 檔案大小
func (s *Service) UploadImage(ctx context.Context, p *Principal, listingID uuid.UUID, upload *Upload) (*models.ListingImage, error) {
	const op = "UploadImage"
	if err := authorizeWrite(p); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	if _, err := s.findEditable(db, p, listingID, false); err != nil {
		return nil, err
	}

	// 同一筆刊登的上傳必須排隊，避免同時通過數量檢查
	if s.locker != nil {
		mutex := s.locker.NewMutex("listing-images:" + listingID.String())
		lockCtx, err := mutex.Lock(ctx)
		if err != nil {
			return nil, fmt.Errorf("[%s] Fail to acquire image lock, err=%w", op, err)
		}
		defer func() {
			if _, err := mutex.Unlock(); err != nil {
				s.logger.Warn("Fail to release image lock", slog.String("listingID", listingID.String()), slog.Any("error", err))
			}
		}()
		ctx = lockCtx
		db = s.db.WithContext(ctx)
	}

	count, err := s.countImages(db, listingID)
	if err != nil {
		return nil, fmt.Errorf("[%s] %w", op, err)
	}
	if count >= MaxImages {
		return nil, ErrTooManyImages
	}
	if upload == nil || upload.Body == nil {
		return nil, ErrNoImage
	}
	if !internalS3.IsImageContentType(upload.ContentType) {
		return nil, ErrNotImage
	}
	if upload.Size > internalS3.MaxImageSize {
		return nil, ErrImageTooLarge
	}
	content, err := internalS3.ReadAllLimited(upload.Body, internalS3.MaxImageSize)
	if err != nil {
		var limitErr *internalS3.ReachLimitError
		if errors.As(err, &limitErr) {
			return nil, ErrImageTooLarge
		}
		return nil, fmt.Errorf("[%s] Fail to read upload, err=%w", op, err)
	}
	// 宣告的類型不可信，以實際內容判斷
	contentType := http.DetectContentType(content)
	ok, ext := internalS3.CheckSecureImageAndGetExtension(contentType)
	if !ok {
		return nil, ErrNotImage
	}

	key := path.Join(s.keyPrefix, listingID.String(), uuid.NewString()+"."+ext)
	url, err := s.blob.Upload(ctx, key, contentType, content)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to upload image, err=%w", op, err)
	}

	image := models.ListingImage{
		ListingID: listingID,
		URL:       url,
		Key:       key,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		count, err := s.countImages(tx, listingID)
		if err != nil {
			return err
		}
		if count >= MaxImages {
			return ErrTooManyImages
		}
		image.Order = int(count)
		return tx.Create(&image).Error
	})
	if err != nil {
		// 資料沒有寫入，已上傳的檔案不再需要
		s.deleteBlob(ctx, key)
		return nil, wrapUnlessDomain(op, "Fail to save image", err)
	}
	s.logger.Debug("Image uploaded", slog.String("listingID", listingID.String()), slog.String("key", key))
	return &image, nil
}

// DeleteImage 刪除刊登的一張照片，並重新排列剩餘照片的順序
func (s *Service) DeleteImage(ctx context.Context, p *Principal, listingID, imageID uuid.UUID) error {
	const op = "DeleteImage"
	if err := authorizeWrite(p); err != nil {
		return err
	}

	var image models.ListingImage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findEditable(tx, p, listingID, false); err != nil {
			return err
		}
		if err := tx.First(&image, "id = ? AND listing_id = ?", imageID, listingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Delete(&image).Error; err != nil {
			return err
		}
		var rest []models.ListingImage
		if err := tx.Scopes(orderImages).Where("listing_id = ?", listingID).Find(&rest).Error; err != nil {
			return err
		}
		for i := range rest {
			if rest[i].Order == i {
				continue
			}
			if err := tx.Model(&rest[i]).Update("sort_order", i).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapUnlessDomain(op, "Fail to delete image", err)
	}
	s.deleteBlob(ctx, image.Key)
	return nil
}

func (s *Service) countImages(db *gorm.DB, listingID uuid.UUID) (int64, error) {
	var count int64
	if err := db.Model(&models.ListingImage{}).Where("listing_id = ?", listingID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("Fail to count images, listingID=%s, err=%w", listingID, err)
	}
	return count, nil
}

// deleteBlob 刪除 blob store 中的檔案，失敗只記錄日誌
func (s *Service) deleteBlob(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.blob.Delete(ctx, key); err != nil {
		s.logger.Warn("Fail to delete blob", slog.String("key", key), slog.Any("error", err))
	}
}
