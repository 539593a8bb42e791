package dto

type PracticeTurnRequest struct {
	TelegramID int64  `json:"telegram_id"`
	Mode       string `json:"mode"`
	Message    string `json:"message"`
}

type PracticeTurnResponse struct {
	Reply  string `json:"reply"`
	Streak int    `json:"streak"`
}

type CheckInRequest struct {
	TelegramID int64 `json:"telegram_id"`
}

type CheckInResponse struct {
	Streak  int  `json:"streak"`
	Updated bool `json:"updated"`
}

type LessonCompleteRequest struct {
	TelegramID int64 `json:"telegram_id"`
}

type LessonCompleteResponse struct {
	LessonsLeft int `json:"lessons_left"`
	Streak      int `json:"streak"`
}
