package persistence

import "time"

// User 使用者與身體資料（每日熱量估算用）
type User struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Username       string     `gorm:"uniqueIndex;size:64;not null" json:"username"`
	HashedPassword string     `gorm:"not null" json:"-"`
	Weight         float64    `json:"weight,omitempty"`
	Height         float64    `json:"height,omitempty"`
	Sex            string     `gorm:"size:16" json:"sex,omitempty"`
	Age            int        `json:"age,omitempty"`
	Goal           string     `gorm:"size:16" json:"goal,omitempty"`
	Allergens      []Allergen `gorm:"many2many:user_allergens;" json:"allergens"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"-"`
}

// AllergenNames 過敏原名稱清單
func (u *User) AllergenNames() []string {
	names := make([]string, 0, len(u.Allergens))
	for _, a := range u.Allergens {
		names = append(names, a.Name)
	}
	return names
}

// Allergen 過敏原，多個使用者共用同一筆
type Allergen struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:128;not null" json:"name"`
}

// FavoriteRecipe 使用者喜愛的料理名稱
type FavoriteRecipe struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_favorite_user_name;not null" json:"-"`
	Name      string    `gorm:"uniqueIndex:idx_favorite_user_name;size:255;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// DiaryDay 每位使用者每天最多一筆
type DiaryDay struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_diary_user_date;not null" json:"-"`
	Date      string    `gorm:"uniqueIndex:idx_diary_user_date;size:10;not null" json:"date"`
	Meals     []Meal    `gorm:"foreignKey:DiaryDayID" json:"meals"`
	CreatedAt time.Time `json:"-"`
}

// TotalCalories 當日所有餐點熱量總和
func (d *DiaryDay) TotalCalories() int {
	total := 0
	for _, m := range d.Meals {
		total += m.Calories
	}
	return total
}

// Meal 日記中的一餐
type Meal struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DiaryDayID uint      `gorm:"index;not null" json:"-"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	Calories   int       `json:"calories"`
	CreatedAt  time.Time `json:"created_at"`
}

func allModels() []interface{} {
	return []interface{}{&User{}, &Allergen{}, &FavoriteRecipe{}, &DiaryDay{}, &Meal{}}
}
