package backend

import (
	"encoding/json"

	"github.com/felixgeelhaar/taleyport/internal/task"
)

// Story is a story template offered by the backend.
type Story struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	TotalScenes int    `json:"total_scenes"`
}

// ListStoriesResponse is the body of GET /stories.
type ListStoriesResponse struct {
	Stories []Story `json:"stories"`
}

// ImageFile is one image to upload.
type ImageFile struct {
	Filename string
	Data     []byte
}

// UploadedImage describes a stored image.
type UploadedImage struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// UploadResponse is the body of POST /upload-image. Image1 is the full body
// photo, Image2 the close-up.
type UploadResponse struct {
	Message string         `json:"message,omitempty"`
	Image1  *UploadedImage `json:"image1,omitempty"`
	Image2  *UploadedImage `json:"image2,omitempty"`
}

// ImageURL returns the stored full body image URL, if any.
func (r *UploadResponse) ImageURL() string {
	if r == nil || r.Image1 == nil {
		return ""
	}
	return r.Image1.URL
}

// FaceURL returns the stored close-up image URL, if any.
func (r *UploadResponse) FaceURL() string {
	if r == nil || r.Image2 == nil {
		return ""
	}
	return r.Image2.URL
}

// AudioRequest is the body of POST /generate-audio.
type AudioRequest struct {
	KidName  string `json:"kid_name"`
	Language string `json:"language"`
	StoryID  string `json:"story_id"`
	Gender   string `json:"gender"`
}

// AudioResponse is the body returned by POST /generate-audio. Fields the
// client does not model are kept in Extra.
type AudioResponse struct {
	AudioURL  string         `json:"audio_url"`
	StoryName string         `json:"story_name"`
	Extra     map[string]any `json:"-"`
}

// UnmarshalJSON keeps unknown fields in Extra.
func (r *AudioResponse) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["audio_url"].(string); ok {
		r.AudioURL = v
	}
	if v, ok := raw["story_name"].(string); ok {
		r.StoryName = v
	}
	delete(raw, "audio_url")
	delete(raw, "story_name")
	if len(raw) > 0 {
		r.Extra = raw
	}
	return nil
}

// VideoRequest is the body of POST /generate-specific-videos.
type VideoRequest struct {
	ImageURL string   `json:"image_url"`
	FaceURL  string   `json:"face_url"`
	SceneIDs []string `json:"scene_ids"`
	StoryID  string   `json:"story_id"`
}

// VideoResponse is the body returned by POST /generate-specific-videos.
type VideoResponse struct {
	OutputPrompts []task.SceneTask `json:"output_prompts"`
}

// TaskStatusRequest is the body of POST /get-task-status.
type TaskStatusRequest struct {
	OutputPrompts []task.SceneTask `json:"output_prompts"`
	StoryID       string           `json:"story_id"`
}

// TaskStatusResponse is the body returned by POST /get-task-status.
type TaskStatusResponse struct {
	Results []task.StatusUpdate `json:"results"`
}

// User is the logged in account behind a session cookie.
type User struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

// UserResponse is the body of GET /user.
type UserResponse struct {
	LoggedIn bool  `json:"logged_in"`
	User     *User `json:"user,omitempty"`
}
