package storage

import (
	"context"
	"io"
)

// UploadResult описывает сохраненный объект.
type UploadResult struct {
	Key      string `json:"key"`
	Location string `json:"location"`
	ETag     string `json:"etag,omitempty"`
}

// FileUploader - хранилище объектов, куда выгружаются архивы итоговых таблиц.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	// GetPublicURL возвращает "" если публичный адрес не настроен.
	GetPublicURL(key string) string
}
