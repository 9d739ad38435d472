package model

import "encoding/json"

type UploadStatus string

const (
	StatusQueued     UploadStatus = "QUEUED"
	StatusInProgress UploadStatus = "IN_PROGRESS"
	StatusSuccess    UploadStatus = "SUCCESS"
	StatusError      UploadStatus = "ERROR"
)

// IsTerminal сообщает, что опрос запроса можно прекращать.
// Неизвестные статусы считаются терминальными.
func (s UploadStatus) IsTerminal() bool {
	return s != StatusQueued && s != StatusInProgress
}

func (s UploadStatus) IsKnown() bool {
	switch s {
	case StatusQueued, StatusInProgress, StatusSuccess, StatusError:
		return true
	}
	return false
}

// UploadRequest представляет PackageUploadRequest.
//
// ID присваивается сервером при создании, остальные поля создаваемого запроса
// после этого не меняются. Status, MetadataPackageVersionID и Errors
// заполняются только при чтении.
type UploadRequest struct {
	ID                       string          `json:"Id,omitempty"`
	MetadataPackageID        string          `json:"MetadataPackageId,omitempty"`
	IsReleaseVersion         bool            `json:"IsReleaseVersion"`
	VersionName              string          `json:"VersionName,omitempty"`
	Status                   UploadStatus    `json:"Status,omitempty"`
	MetadataPackageVersionID string          `json:"MetadataPackageVersionId,omitempty"`
	Errors                   json.RawMessage `json:"Errors,omitempty"`
}
