package store

import (
	"context"
	"errors"
	"strings"

	"github.com/sitewatch/auditlog/internal/model"
	"gorm.io/gorm"
)

type AdminRow struct {
	ID           int64
	Email        string
	PasswordHash string
}

func CountAdmins(ctx context.Context, db *gorm.DB) (int64, error) {
	if db == nil {
		return 0, nil
	}
	var n int64
	err := db.WithContext(ctx).Model(&model.AdminUser{}).Count(&n).Error
	return n, err
}

func CreateAdmin(ctx context.Context, db *gorm.DB, email string, passwordHash string) (int64, error) {
	if db == nil {
		return 0, nil
	}
	email = strings.ToLower(strings.TrimSpace(email))
	u := model.AdminUser{Email: email, PasswordHash: passwordHash}
	if err := db.WithContext(ctx).Create(&u).Error; err != nil {
		if IsUniqueViolation(err) {
			return 0, errors.New("admin already exists")
		}
		return 0, err
	}
	return u.ID, nil
}

func GetAdminByEmail(ctx context.Context, db *gorm.DB, email string) (AdminRow, bool, error) {
	if db == nil {
		return AdminRow{}, false, nil
	}
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.AdminUser
	err := db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AdminRow{}, false, nil
		}
		return AdminRow{}, false, err
	}
	return AdminRow{ID: u.ID, Email: u.Email, PasswordHash: u.PasswordHash}, true, nil
}

func GetAdminByID(ctx context.Context, db *gorm.DB, id int64) (AdminRow, bool, error) {
	if db == nil {
		return AdminRow{}, false, nil
	}
	var u model.AdminUser
	err := db.WithContext(ctx).First(&u, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AdminRow{}, false, nil
		}
		return AdminRow{}, false, err
	}
	return AdminRow{ID: u.ID, Email: u.Email, PasswordHash: u.PasswordHash}, true, nil
}

func GetSiteUserByLogin(ctx context.Context, db *gorm.DB, login string) (model.SiteUser, bool, error) {
	if db == nil {
		return model.SiteUser{}, false, nil
	}
	login = strings.TrimSpace(login)
	if login == "" {
		return model.SiteUser{}, false, nil
	}
	var u model.SiteUser
	err := db.WithContext(ctx).Where("login = ?", login).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.SiteUser{}, false, nil
		}
		return model.SiteUser{}, false, err
	}
	return u, true, nil
}

func GetSiteUserByID(ctx context.Context, db *gorm.DB, id int64) (model.SiteUser, bool, error) {
	if db == nil || id <= 0 {
		return model.SiteUser{}, false, nil
	}
	var u model.SiteUser
	err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.SiteUser{}, false, nil
		}
		return model.SiteUser{}, false, err
	}
	return u, true, nil
}
