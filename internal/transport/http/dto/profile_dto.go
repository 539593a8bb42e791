package dto

import "time"

type ProfileResponse struct {
	UserID                string     `json:"user_id"`
	TelegramID            int64      `json:"telegram_id"`
	LessonsLeft           int        `json:"lessons_left"`
	PackageExpiresAt      *time.Time `json:"package_expires_at"`
	CurrentStreak         int        `json:"current_streak"`
	LastPracticeDate      *time.Time `json:"last_practice_date"`
	TotalLessonsCompleted int        `json:"total_lessons_completed"`
	InterfaceLanguage     string     `json:"interface_language"`
	AudioAccess           bool       `json:"audio_access"`
	TextAccess            bool       `json:"text_access"`
}
