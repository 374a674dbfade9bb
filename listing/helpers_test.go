package listing

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	internalS3 "carlot/adapters/s3"
	"carlot/models"
)

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

// newTestDB 建立一個 in-memory sqlite；只保留一條連線，交易中必須使用 tx
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type fixture struct {
	db      *gorm.DB
	service *Service
	blob    *internalS3.MockIBlobStore
	events  *fakePublisher

	seller      *models.User
	otherSeller *models.User
	buyer       *models.User
	staff       *models.User

	category     *models.Category
	brand        *models.Brand
	otherBrand   *models.Brand
	model        *models.CarModel
	otherModel   *models.CarModel
	region       *models.Region
	city         *models.City
	fuel         *models.FuelType
	transmission *models.TransmissionType
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db := newTestDB(t)
	ctrl := gomock.NewController(t)
	f := &fixture{
		db:     db,
		blob:   internalS3.NewMockIBlobStore(ctrl),
		events: &fakePublisher{},
	}

	f.seller = f.createUser(t, "seller", models.RoleSeller, false)
	f.otherSeller = f.createUser(t, "other", models.RoleSeller, false)
	f.buyer = f.createUser(t, "buyer", models.RoleBuyer, false)
	f.staff = f.createUser(t, "staff", models.RoleBuyer, true)

	f.category = &models.Category{Name: "Car"}
	f.brand = &models.Brand{Name: "Toyota"}
	f.otherBrand = &models.Brand{Name: "Honda"}
	f.region = &models.Region{Name: "Almaty Region"}
	f.fuel = &models.FuelType{Name: "Petrol"}
	f.transmission = &models.TransmissionType{Name: "Automatic"}
	for _, v := range []any{f.category, f.brand, f.otherBrand, f.region, f.fuel, f.transmission} {
		require.NoError(t, db.Create(v).Error)
	}
	f.model = &models.CarModel{BrandID: f.brand.ID, Name: "Camry"}
	f.otherModel = &models.CarModel{BrandID: f.otherBrand.ID, Name: "Civic"}
	f.city = &models.City{RegionID: f.region.ID, Name: "Almaty"}
	for _, v := range []any{f.model, f.otherModel, f.city} {
		require.NoError(t, db.Create(v).Error)
	}

	opts = append([]Option{WithClock(func() time.Time { return testNow }), WithPublisher(f.events)}, opts...)
	f.service = NewService(db, f.blob, opts...)
	return f
}

func (f *fixture) createUser(t *testing.T, username string, role models.Role, staff bool) *models.User {
	t.Helper()
	u := &models.User{Username: username, Role: role, IsStaff: staff}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

// input 返回一份可以成功建立刊登的輸入
func (f *fixture) input() Input {
	return Input{
		Title:        Some("Toyota Camry 2018"),
		Description:  Some("One owner"),
		Price:        Some(Decimal(12345)),
		Year:         Some(2018),
		Mileage:      Some(85000),
		Category:     Some(f.category.ID),
		Brand:        Some(f.brand.ID),
		Model:        Some(f.model.ID),
		City:         Some(f.city.ID),
		FuelType:     Some(f.fuel.ID),
		Transmission: Some(f.transmission.ID),
	}
}

// insertListing 直接寫入一筆刊登，略過服務層的規則
func (f *fixture) insertListing(t *testing.T, seller *models.User, title string, status models.ListingStatus, active bool, mutate ...func(*models.Listing)) *models.Listing {
	t.Helper()
	l := &models.Listing{
		SellerID:       seller.ID,
		CategoryID:     f.category.ID,
		BrandID:        f.brand.ID,
		CarModelID:     f.model.ID,
		CityID:         f.city.ID,
		FuelTypeID:     f.fuel.ID,
		TransmissionID: f.transmission.ID,
		Title:          title,
		Price:          10000,
		Year:           2015,
		Status:         status,
		IsActive:       active,
		ExpiresAt:      lo.ToPtr(testNow.Add(models.ListingLifetime)),
	}
	for _, fn := range mutate {
		fn(l)
	}
	require.NoError(t, f.db.Create(l).Error)
	return l
}

func (f *fixture) insertImages(t *testing.T, listingID uuid.UUID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, f.db.Create(&models.ListingImage{
			ListingID: listingID,
			URL:       "https://cdn.example.com/x.png",
			Key:       "listings/x.png",
			Order:     i,
		}).Error)
	}
}

func as(u *models.User) *Principal {
	return PrincipalOf(u)
}

// fakePublisher 記錄所有發佈的事件
type fakePublisher struct {
	mu     sync.Mutex
	events []StatusChanged
}

func (p *fakePublisher) Start() {}

func (p *fakePublisher) Close() {}

func (p *fakePublisher) Publish(event StatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) Events() []StatusChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]StatusChanged(nil), p.events...)
}
