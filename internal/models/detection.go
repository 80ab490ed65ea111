package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DetectionType selects what the AI service should look for.
type DetectionType string

const (
	DetectionFace    DetectionType = "face"
	DetectionBody    DetectionType = "body"
	DetectionBoth    DetectionType = "both"
	DetectionObjects DetectionType = "objects"
)

// ValidForUpload reports whether the type is accepted on the upload path.
func (t DetectionType) ValidForUpload() bool {
	switch t {
	case DetectionFace, DetectionBody, DetectionBoth:
		return true
	}
	return false
}

// ValidForRealtime reports whether the type is accepted on the realtime
// path, which additionally supports object detection.
func (t DetectionType) ValidForRealtime() bool {
	return t.ValidForUpload() || t == DetectionObjects
}

// File kinds, classified from the MIME type at upload time.
const (
	FileTypeImage = "image"
	FileTypeVideo = "video"
)

// Detection statuses. A record starts as processing and terminates as
// completed or failed; no transition leads back to processing.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// BoundingBox is a rectangle in pixel coordinates.
type BoundingBox struct {
	X      float64 `bson:"x" json:"x"`
	Y      float64 `bson:"y" json:"y"`
	Width  float64 `bson:"width" json:"width"`
	Height float64 `bson:"height" json:"height"`
}

// Landmark is a named point on a detected face.
type Landmark struct {
	X    float64 `bson:"x" json:"x"`
	Y    float64 `bson:"y" json:"y"`
	Name string  `bson:"name,omitempty" json:"name,omitempty"`
}

// Keypoint is a scored point on a detected body part.
type Keypoint struct {
	X          float64 `bson:"x" json:"x"`
	Y          float64 `bson:"y" json:"y"`
	Confidence float64 `bson:"confidence" json:"confidence"`
	Name       string  `bson:"name,omitempty" json:"name,omitempty"`
}

// EmotionScores is the fixed emotion vector the AI service scores each
// face against.
type EmotionScores struct {
	Happy     float64 `bson:"happy" json:"happy"`
	Sad       float64 `bson:"sad" json:"sad"`
	Angry     float64 `bson:"angry" json:"angry"`
	Surprised float64 `bson:"surprised" json:"surprised"`
	Neutral   float64 `bson:"neutral" json:"neutral"`
	Fear      float64 `bson:"fear" json:"fear"`
	Disgust   float64 `bson:"disgust" json:"disgust"`
}

// FaceDetection is one detected face.
type FaceDetection struct {
	BoundingBox BoundingBox   `bson:"boundingBox" json:"boundingBox"`
	Confidence  float64       `bson:"confidence" json:"confidence"`
	Landmarks   []Landmark    `bson:"landmarks,omitempty" json:"landmarks,omitempty"`
	Emotions    EmotionScores `bson:"emotions" json:"emotions"`
	Age         *int          `bson:"age,omitempty" json:"age,omitempty"`
	Gender      string        `bson:"gender,omitempty" json:"gender,omitempty"`
}

// BodyPartDetection is one detected body part.
type BodyPartDetection struct {
	Name        string      `bson:"name" json:"name"`
	Keypoints   []Keypoint  `bson:"keypoints,omitempty" json:"keypoints,omitempty"`
	BoundingBox BoundingBox `bson:"boundingBox" json:"boundingBox"`
	Confidence  float64     `bson:"confidence" json:"confidence"`
}

// DetectionResults is the structured payload stored on a record.
type DetectionResults struct {
	Faces     []FaceDetection     `bson:"faces" json:"faces"`
	BodyParts []BodyPartDetection `bson:"bodyParts" json:"bodyParts"`
	// ProcessingTime is reported by the AI service in milliseconds.
	ProcessingTime  int64 `bson:"processingTime" json:"processingTime"`
	TotalDetections int   `bson:"totalDetections" json:"totalDetections"`
}

// Recount recomputes TotalDetections from the stored lists. Repositories
// call this on every persist so the stored count never drifts.
func (r *DetectionResults) Recount() {
	r.TotalDetections = len(r.Faces) + len(r.BodyParts)
}

// Detection represents one upload-path detection attempt in the
// detections collection. FilePath is internal and never serialized.
type Detection struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User             primitive.ObjectID `bson:"user" json:"user"`
	OriginalFileName string             `bson:"originalFileName" json:"originalFileName"`
	FilePath         string             `bson:"filePath,omitempty" json:"-"`
	FileType         string             `bson:"fileType" json:"fileType"`
	MimeType         string             `bson:"mimeType" json:"mimeType"`
	FileSize         int64              `bson:"fileSize" json:"fileSize"`
	DetectionType    DetectionType      `bson:"detectionType" json:"detectionType"`
	Results          DetectionResults   `bson:"results" json:"results"`
	Status           string             `bson:"status" json:"status"`
	ErrorMessage     string             `bson:"errorMessage,omitempty" json:"errorMessage,omitempty"`
	IsPublic         bool               `bson:"isPublic" json:"isPublic"`
	Tags             []string           `bson:"tags,omitempty" json:"tags,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`

	// Owner is populated on admin reads only.
	Owner *UserRef `bson:"owner,omitempty" json:"owner,omitempty"`
}

// UserRef is the owner projection attached to admin detection reads.
type UserRef struct {
	ID    primitive.ObjectID `bson:"_id" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email" json:"email"`
}

// ListDetectionsFilter narrows detection listings.
type ListDetectionsFilter struct {
	User          *primitive.ObjectID
	Status        string
	DetectionType string
	FileType      string
	Page          int
	Limit         int
}

// DetectionStats summarizes a user's detection records.
type DetectionStats struct {
	TotalDetections        int64 `bson:"totalDetections" json:"totalDetections"`
	CompletedDetections    int64 `bson:"completedDetections" json:"completedDetections"`
	FailedDetections       int64 `bson:"failedDetections" json:"failedDetections"`
	FaceDetections         int64 `bson:"faceDetections" json:"faceDetections"`
	BodyDetections         int64 `bson:"bodyDetections" json:"bodyDetections"`
	TotalFacesDetected     int64 `bson:"totalFacesDetected" json:"totalFacesDetected"`
	TotalBodyPartsDetected int64 `bson:"totalBodyPartsDetected" json:"totalBodyPartsDetected"`
}

// SystemDetectionStats summarizes the detections collection globally.
type SystemDetectionStats struct {
	TotalDetections      int64 `bson:"totalDetections" json:"totalDetections"`
	CompletedDetections  int64 `bson:"completedDetections" json:"completedDetections"`
	FailedDetections     int64 `bson:"failedDetections" json:"failedDetections"`
	ProcessingDetections int64 `bson:"processingDetections" json:"processingDetections"`
}

// ActivityBucket is one day of detection activity.
type ActivityBucket struct {
	Date  string `bson:"_id" json:"date"`
	Count int64  `bson:"count" json:"count"`
}
