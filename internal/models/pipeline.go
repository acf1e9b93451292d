// models содержит доменные сущности myoutfood.
// Эти типы используются оркестратором, стадиями, историей и транспортом.
package models

import (
	"encoding/base64"
	"time"
)

// PipelineRequest — входной запрос конвейера. После приёма не меняется.
type PipelineRequest struct {
	// ClientID — ключ rate-limit и слота истории (пользователь или anon:<ip>).
	ClientID string
	// Image — сырые байты фото образа.
	Image []byte
	// MIMEType — заявленный тип изображения.
	MIMEType string
	// LocationText — свободный текст локации ("Kadıköy, Istanbul").
	LocationText string
}

// ImageKind — вариант ImageRef.
type ImageKind string

const (
	ImageKindURL    ImageKind = "url"
	ImageKindInline ImageKind = "inline"
)

// ImageRef — ссылка на сгенерированное изображение: URL или inline-байты.
// Адаптер генератора формирует вариант один раз, дальше форма не угадывается.
type ImageRef struct {
	Kind     ImageKind `json:"kind"`
	URL      string    `json:"url,omitempty"`
	Data     []byte    `json:"data,omitempty"`
	MIMEType string    `json:"mime_type,omitempty"`
}

// URLImage — ImageRef по ссылке.
func URLImage(url string) ImageRef {
	return ImageRef{Kind: ImageKindURL, URL: url}
}

// InlineImage — ImageRef с inline-байтами. Пустой mime трактуется как image/png.
func InlineImage(data []byte, mime string) ImageRef {
	if mime == "" {
		mime = "image/png"
	}

	return ImageRef{Kind: ImageKindInline, Data: data, MIMEType: mime}
}

// IsZero — true, если изображение не задано.
func (r ImageRef) IsZero() bool {
	return r.Kind == "" || (r.Kind == ImageKindURL && r.URL == "") || (r.Kind == ImageKindInline && len(r.Data) == 0)
}

// String возвращает URL или data:-URI для inline-варианта.
func (r ImageRef) String() string {
	switch r.Kind {
	case ImageKindURL:
		return r.URL
	case ImageKindInline:
		return "data:" + r.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
	default:
		return ""
	}
}

// Coordinates — десятичные градусы.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PlaceSuggestion — ресторан, разобранный из ответа PlaceFinder.
//
// Особенности:
//   - Name обязателен: блок без имени отбрасывается парсером;
//   - Coordinates == nil, если строку "lat, lng" разобрать не удалось,
//     исходный текст остаётся в LocationText.
type PlaceSuggestion struct {
	Name         string       `json:"name"`
	CuisineType  string       `json:"cuisine_type,omitempty"`
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
	LocationText string       `json:"location_text,omitempty"`
	Proximity    string       `json:"proximity,omitempty"`
	Rating       string       `json:"rating,omitempty"`
	Description  string       `json:"description,omitempty"`
}

// PipelineResult — итог успешного (в т.ч. деградированного) прогона.
type PipelineResult struct {
	Caption string            `json:"caption"`
	Image   ImageRef          `json:"image"`
	Places  []PlaceSuggestion `json:"places"`
	// Degraded — caption и изображение получены, поиск мест — нет.
	Degraded       bool      `json:"degraded,omitempty"`
	DegradedReason string    `json:"degraded_reason,omitempty"`
	CompletedAt    time.Time `json:"completed_at"`
	// Stages — финальные статусы стадий для отображения прогресса.
	Stages []StageState `json:"stages,omitempty"`
}

// HistoryEntry — запись истории. CreatedAt уникален в пределах слота.
type HistoryEntry struct {
	Result    PipelineResult    `json:"result"`
	Caption   string            `json:"caption,omitempty"`
	Places    []PlaceSuggestion `json:"places"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewHistoryEntry строит запись из результата прогона.
func NewHistoryEntry(res PipelineResult, createdAt time.Time) HistoryEntry {
	places := make([]PlaceSuggestion, len(res.Places))
	copy(places, res.Places)

	return HistoryEntry{
		Result:    res,
		Caption:   res.Caption,
		Places:    places,
		CreatedAt: createdAt.UTC(),
	}
}
