package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	redisAdapter "carlot/adapters/redis"
	internalS3 "carlot/adapters/s3"
	"carlot/models"
	"carlot/validation"
)

// Locker 建立以 key 區分的分散式鎖
type Locker interface {
	NewMutex(key string) redisAdapter.IAutoRenewMutex
}

// Page 是一頁刊登查詢結果
type Page struct {
	Count    int64
	Page     int
	PageSize int
	Results  []models.Listing
}

type Service struct {
	db        *gorm.DB
	blob      internalS3.IBlobStore
	locker    Locker
	publisher redisAdapter.IProducer[StatusChanged]
	sanitizer *bluemonday.Policy
	now       func() time.Time
	logger    *slog.Logger
	keyPrefix string
}

type Option func(*Service)

// WithLocker 設置上傳照片時使用的分散式鎖
func WithLocker(locker Locker) Option {
	return func(s *Service) {
		s.locker = locker
	}
}

// WithPublisher 設置狀態變更事件的發佈者
func WithPublisher(publisher redisAdapter.IProducer[StatusChanged]) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithClock 設置取得目前時間的函數
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithKeyPrefix 設置照片在 blob store 中的 key 前綴
func WithKeyPrefix(prefix string) Option {
	return func(s *Service) {
		s.keyPrefix = prefix
	}
}

func NewService(db *gorm.DB, blob internalS3.IBlobStore, opts ...Option) *Service {
	s := &Service{
		db:        db,
		blob:      blob,
		sanitizer: bluemonday.UGCPolicy(),
		now:       time.Now,
		logger:    slog.Default(),
		keyPrefix: "listings",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("caller", "ListingService"))
	return s
}

func orderImages(db *gorm.DB) *gorm.DB {
	return db.Order(clause.OrderByColumn{Column: clause.Column{Name: "sort_order"}})
}

// List 返回 p 可見且符合篩選條件的刊登
func (s *Service) List(ctx context.Context, p *Principal, f Filter) (*Page, error) {
	const op = "List"
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	query := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Listing{}).Scopes(VisibleTo(p), f.Scope())
	}

	var count int64
	if err := query().Count(&count).Error; err != nil {
		return nil, fmt.Errorf("[%s] Fail to count listings, err=%w", op, err)
	}
	// 超出範圍的頁數視為不存在，第一頁例外
	if f.Page > 1 && int64(f.Offset()) >= count {
		return nil, ErrInvalidPage
	}

	listings := []models.Listing{}
	if err := query().
		Scopes(f.Order()).
		Preload("Images", orderImages).
		Offset(f.Offset()).
		Limit(f.PageSize).
		Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("[%s] Fail to list listings, err=%w", op, err)
	}
	return &Page{Count: count, Page: f.Page, PageSize: f.PageSize, Results: listings}, nil
}

// Get 返回單筆 p 可見的刊登，不可見與不存在同樣返回 ErrNotFound
func (s *Service) Get(ctx context.Context, p *Principal, id uuid.UUID) (*models.Listing, error) {
	return s.find(s.db.WithContext(ctx), p, id, true)
}

func (s *Service) find(db *gorm.DB, p *Principal, id uuid.UUID, withImages bool) (*models.Listing, error) {
	const op = "find"
	query := db.Scopes(VisibleTo(p))
	if withImages {
		query = query.Preload("Images", orderImages)
	}
	var l models.Listing
	if err := query.First(&l, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("[%s] Fail to find listing, id=%s, err=%w", op, id, err)
	}
	return &l, nil
}

// findEditable 取得 p 可見且可修改的刊登
func (s *Service) findEditable(db *gorm.DB, p *Principal, id uuid.UUID, withImages bool) (*models.Listing, error) {
	l, err := s.find(db, p, id, withImages)
	if err != nil {
		return nil, err
	}
	if !p.CanEdit(l) {
		return nil, ErrPermissionDenied
	}
	return l, nil
}

// Create 建立刊登，賣家一律為請求者且狀態一律為待審
func (s *Service) Create(ctx context.Context, p *Principal, in Input) (*models.Listing, error) {
	const op = "Create"
	if err := authorizeWrite(p); err != nil {
		return nil, err
	}

	now := s.now()
	l := models.Listing{IsActive: true}
	errs := validation.Errors{}
	in.apply(&l, true, errs)
	l.SellerID = p.ID
	l.Status = models.StatusPending
	l.CreatedAt = now
	l.UpdatedAt = now
	l.ExpiresAt = lo.ToPtr(now.Add(models.ListingLifetime))
	s.normalize(&l)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.validate(tx, &l, errs); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&l).Error; err != nil {
			return translateWriteError(err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapUnlessDomain(op, "Fail to create listing", err)
	}
	l.Images = []models.ListingImage{}
	return &l, nil
}

// Update 修改刊登；partial 為 false 時(PUT)必填欄位必須提供
// 非管理人員不能修改狀態與賣家，這兩個欄位會被還原成原本的值
func (s *Service) Update(ctx context.Context, p *Principal, id uuid.UUID, in Input, partial bool) (*models.Listing, error) {
	const op = "Update"
	if err := authorizeWrite(p); err != nil {
		return nil, err
	}

	var event *StatusChanged
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := s.findEditable(tx, p, id, false)
		if err != nil {
			return err
		}
		prevStatus, prevSeller := l.Status, l.SellerID

		errs := validation.Errors{}
		in.apply(l, !partial, errs)
		if !p.IsModerator() {
			l.Status = prevStatus
			l.SellerID = prevSeller
		}
		now := s.now()
		s.normalize(l)
		if err := s.validate(tx, l, errs); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(l).Error; err != nil {
			return translateWriteError(err)
		}
		if l.Status != prevStatus {
			if event, err = recordStatusChange(tx, l, p.ID, prevStatus, now); err != nil {
				return err
			}
			s.logger.Info("Listing status changed",
				slog.String("listingID", l.ID.String()),
				slog.String("from", string(prevStatus)),
				slog.String("to", string(l.Status)))
		}
		return nil
	})
	if err != nil {
		return nil, wrapUnlessDomain(op, "Fail to update listing", err)
	}
	s.publish(event)
	return s.Get(ctx, p, id)
}

// Delete 刪除刊登與它的照片
func (s *Service) Delete(ctx context.Context, p *Principal, id uuid.UUID) error {
	const op = "Delete"
	if err := authorizeWrite(p); err != nil {
		return err
	}

	var images []models.ListingImage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := s.findEditable(tx, p, id, true)
		if err != nil {
			return err
		}
		images = l.Images
		if err := tx.Where("listing_id = ?", l.ID).Delete(&models.ListingImage{}).Error; err != nil {
			return fmt.Errorf("Fail to delete images, err=%w", err)
		}
		if err := tx.Delete(&models.Listing{}, "id = ?", l.ID).Error; err != nil {
			return fmt.Errorf("Fail to delete listing, err=%w", err)
		}
		return nil
	})
	if err != nil {
		return wrapUnlessDomain(op, "Fail to delete listing", err)
	}
	for _, image := range images {
		s.deleteBlob(ctx, image.Key)
	}
	return nil
}

// translateWriteError 將資料庫約束錯誤轉換為欄位錯誤
func translateWriteError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return validation.Field("vin", msgVINTaken)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return validation.Field("non_field_errors", "A referenced object does not exist.")
	}
	return err
}

var domainErrors = []error{
	ErrNotFound,
	ErrPermissionDenied,
	ErrUnauthenticated,
	ErrTooManyImages,
	ErrNoImage,
	ErrNotImage,
	ErrImageTooLarge,
}

// wrapUnlessDomain 保留領域錯誤讓呼叫端用 errors.Is/As 判斷，其他錯誤加上 op 資訊
func wrapUnlessDomain(op, message string, err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) || lo.ContainsBy(domainErrors, func(target error) bool { return errors.Is(err, target) }) {
		return err
	}
	return fmt.Errorf("[%s] %s, err=%w", op, message, err)
}
