package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mixclub/music-league/models"
	"github.com/mixclub/music-league/repositories"
	"github.com/mixclub/music-league/storage"
)

var (
	ErrUnsupportedAvatarType = errors.New("avatar must be a jpeg, png or webp image")
	ErrAvatarStorageDisabled = errors.New("avatar storage is not configured")
)

var avatarExtByContentType = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

type UserService interface {
	GetByID(ctx context.Context, userID int) (*models.User, error)
	// UploadAvatar загружает аватар в объектное хранилище и запоминает ключ.
	// Старый файл удаляется после успешной загрузки нового.
	UploadAvatar(ctx context.Context, userID int, contentType string, file io.Reader) (*models.User, error)
	DeleteAvatar(ctx context.Context, userID int) error
}

type userService struct {
	userRepo repositories.UserRepository
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewUserService(userRepo repositories.UserRepository, uploader storage.FileUploader, logger *slog.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		uploader: uploader,
		logger:   logger,
	}
}

func (s *userService) GetByID(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	s.fillAvatarURL(user)
	return user, nil
}

func (s *userService) UploadAvatar(ctx context.Context, userID int, contentType string, file io.Reader) (*models.User, error) {
	if s.uploader == nil {
		return nil, ErrAvatarStorageDisabled
	}
	ext, ok := avatarExtByContentType[strings.ToLower(contentType)]
	if !ok {
		return nil, ErrUnsupportedAvatarType
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	key := fmt.Sprintf("avatars/%d.%s", userID, ext)
	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	oldKey := user.AvatarKey
	if err := s.userRepo.UpdateAvatarKey(ctx, userID, &result.Key); err != nil {
		return nil, fmt.Errorf("failed to save avatar key: %w", err)
	}

	// Смена расширения оставляет старый объект: чистим его отдельно.
	if oldKey != nil && *oldKey != result.Key {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.Warn("failed to delete previous avatar", "key", *oldKey, "error", err)
		}
	}

	user.AvatarKey = &result.Key
	s.fillAvatarURL(user)
	return user, nil
}

func (s *userService) DeleteAvatar(ctx context.Context, userID int) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	if user.AvatarKey == nil {
		return nil
	}
	if s.uploader == nil {
		return ErrAvatarStorageDisabled
	}

	if err := s.userRepo.UpdateAvatarKey(ctx, userID, nil); err != nil {
		return fmt.Errorf("failed to clear avatar key: %w", err)
	}
	if err := s.uploader.Delete(ctx, *user.AvatarKey); err != nil {
		s.logger.Warn("failed to delete avatar object", "key", *user.AvatarKey, "error", err)
	}
	return nil
}

func (s *userService) fillAvatarURL(user *models.User) {
	if user.AvatarKey == nil || s.uploader == nil {
		return
	}
	url := s.uploader.GetPublicURL(*user.AvatarKey)
	if url != "" {
		user.AvatarURL = &url
	}
}
