package persistence

import (
	"context"
	"errors"
	"strings"

	"nutrition-api/internal/pkg/common"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 儲存層錯誤直接帶 HTTP 狀態
var (
	ErrNotFound  = common.ErrNotFound
	ErrDuplicate = common.ErrConflict
)

// Repository 使用者、喜愛料理與飲食日記
type Repository struct {
	db *gorm.DB
}

// NewRepository 建立儲存庫
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Ping 檢查資料庫連線
func (r *Repository) Ping(ctx context.Context) error {
	return Ping(ctx, r.db)
}

// CreateUser 同名過敏原共用一筆；名稱去除空白並去重
func (r *Repository) CreateUser(ctx context.Context, user *User, allergenNames []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&User{}).Where("username = ?", user.Username).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicate.WithMessage("O nome de utilizador já está registado.")
		}

		allergens, err := ensureAllergens(tx, allergenNames)
		if err != nil {
			return err
		}
		user.Allergens = allergens

		if err := tx.Omit("Allergens.*").Create(user).Error; err != nil {
			if isDuplicate(err) {
				return ErrDuplicate.WithMessage("O nome de utilizador já está registado.")
			}
			return err
		}
		return nil
	})
}

func ensureAllergens(tx *gorm.DB, names []string) ([]Allergen, error) {
	allergens := make([]Allergen, 0, len(names))
	seen := make(map[string]bool)
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true

		a := Allergen{Name: name}
		if err := tx.Where(Allergen{Name: name}).FirstOrCreate(&a).Error; err != nil {
			return nil, err
		}
		allergens = append(allergens, a)
	}
	return allergens, nil
}

// FindUserByUsername 連同過敏原一起載入
func (r *Repository) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).Preload("Allergens").Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound.WithMessage("Utilizador não encontrado.")
		}
		return nil, err
	}
	return &user, nil
}

// AddFavorite 同一使用者不可重複收藏同名料理
func (r *Repository) AddFavorite(ctx context.Context, userID uint, name string) (*FavoriteRecipe, error) {
	fav := &FavoriteRecipe{UserID: userID, Name: strings.TrimSpace(name)}
	var count int64
	if err := r.db.WithContext(ctx).Model(&FavoriteRecipe{}).
		Where("user_id = ? AND name = ?", userID, fav.Name).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicate.WithMessage("Esta receita já está nos favoritos.")
	}
	if err := r.db.WithContext(ctx).Create(fav).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicate.WithMessage("Esta receita já está nos favoritos.")
		}
		return nil, err
	}
	return fav, nil
}

// ListFavorites 依加入順序
func (r *Repository) ListFavorites(ctx context.Context, userID uint) ([]FavoriteRecipe, error) {
	favorites := make([]FavoriteRecipe, 0)
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&favorites).Error
	return favorites, err
}

// FavoriteNames 給食譜生成當風格參考
func (r *Repository) FavoriteNames(ctx context.Context, userID uint) ([]string, error) {
	favorites, err := r.ListFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(favorites))
	for _, f := range favorites {
		names = append(names, f.Name)
	}
	return names, nil
}

// DeleteFavorite 只能刪除自己的收藏
func (r *Repository) DeleteFavorite(ctx context.Context, userID, id uint) error {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&FavoriteRecipe{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound.WithMessage("Favorito não encontrado.")
	}
	return nil
}

// AddMeal 當日日記不存在時建立
func (r *Repository) AddMeal(ctx context.Context, userID uint, date string, meal *Meal) (*DiaryDay, error) {
	var day DiaryDay
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		day = DiaryDay{UserID: userID, Date: date}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&day).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ? AND date = ?", userID, date).First(&day).Error; err != nil {
			return err
		}

		meal.DiaryDayID = day.ID
		return tx.Create(meal).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetDiaryDay(ctx, userID, date)
}

// GetDiaryDay 餐點依加入順序
func (r *Repository) GetDiaryDay(ctx context.Context, userID uint, date string) (*DiaryDay, error) {
	var day DiaryDay
	err := r.db.WithContext(ctx).
		Preload("Meals", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("user_id = ? AND date = ?", userID, date).
		First(&day).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound.WithMessage("Não há registos para este dia.")
		}
		return nil, err
	}
	return &day, nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key")
}
