package storage

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Room images are hosted on Cloudinary via its signed upload REST API.
// Configuration comes from CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY,
// CLOUDINARY_API_SECRET and the optional CLOUDINARY_FOLDER.

// ImageHost uploads and deletes room image assets.
type ImageHost struct{}

func NewImageHost() *ImageHost {
	return &ImageHost{}
}

func InitializeS3() {
	if os.Getenv("CLOUDINARY_CLOUD_NAME") == "" {
		log.Println("Cloudinary env vars not set, room image uploads will fail")
	}
}

func cloudinarySignature(publicID, timestamp, apiSecret string) string {
	payload := fmt.Sprintf("public_id=%s&timestamp=%s%s", publicID, timestamp, apiSecret)
	return fmt.Sprintf("%x", sha1.Sum([]byte(payload)))
}

// UploadRoomImage uploads raw image bytes and returns the hosted URL.
func (ImageHost) UploadRoomImage(data []byte, publicID string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty image payload")
	}

	cloudName := os.Getenv("CLOUDINARY_CLOUD_NAME")
	apiKey := os.Getenv("CLOUDINARY_API_KEY")
	apiSecret := os.Getenv("CLOUDINARY_API_SECRET")
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return "", fmt.Errorf("missing Cloudinary credentials")
	}

	finalPublicID := publicID
	if folder := os.Getenv("CLOUDINARY_FOLDER"); folder != "" {
		finalPublicID = folder + "/" + publicID
	}

	timestamp := fmt.Sprintf("%d", time.Now().Unix())

	form := url.Values{}
	form.Add("file", "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString(data))
	form.Add("api_key", apiKey)
	form.Add("public_id", finalPublicID)
	form.Add("timestamp", timestamp)
	form.Add("signature", cloudinarySignature(finalPublicID, timestamp, apiSecret))

	endpoint := "https://api.cloudinary.com/v1_1/" + cloudName + "/image/upload"
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cloudinary upload failed with status %d", res.StatusCode)
	}

	var cloudRes struct {
		SecureURL string `json:"secure_url"`
		URL       string `json:"url"`
		Error     struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &cloudRes); err != nil {
		return "", err
	}
	if cloudRes.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload failed: %s", cloudRes.Error.Message)
	}

	hostedURL := cloudRes.SecureURL
	if hostedURL == "" {
		hostedURL = cloudRes.URL
	}
	if hostedURL == "" {
		return "", fmt.Errorf("cloudinary returned no URL")
	}

	log.Printf("uploaded room image to %s", hostedURL)
	return hostedURL, nil
}

// DeleteRoomImage removes a previously uploaded asset. It reports
// success as a bool because callers treat deletion as best-effort.
func (ImageHost) DeleteRoomImage(imageURL string) bool {
	// URL format: https://res.cloudinary.com/{cloud}/image/upload/v{n}/{public_id}.{ext}
	if !strings.Contains(imageURL, "res.cloudinary.com") {
		log.Printf("not a hosted image URL, skipping delete: %s", imageURL)
		return false
	}

	parts := strings.Split(imageURL, "/")
	if len(parts) < 2 {
		return false
	}
	lastPart := parts[len(parts)-1]
	publicID := strings.Split(lastPart, ".")[0]

	cloudName := os.Getenv("CLOUDINARY_CLOUD_NAME")
	apiKey := os.Getenv("CLOUDINARY_API_KEY")
	apiSecret := os.Getenv("CLOUDINARY_API_SECRET")
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return false
	}

	finalPublicID := publicID
	if folder := os.Getenv("CLOUDINARY_FOLDER"); folder != "" {
		finalPublicID = folder + "/" + publicID
	}

	timestamp := fmt.Sprintf("%d", time.Now().Unix())

	form := url.Values{}
	form.Add("public_id", finalPublicID)
	form.Add("api_key", apiKey)
	form.Add("timestamp", timestamp)
	form.Add("signature", cloudinarySignature(finalPublicID, timestamp, apiSecret))

	endpoint := "https://api.cloudinary.com/v1_1/" + cloudName + "/image/destroy"
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Printf("failed to delete room image: %v", err)
		return false
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil || res.StatusCode != http.StatusOK {
		log.Printf("room image deletion failed with status %d", res.StatusCode)
		return false
	}

	var deleteRes struct {
		Result string `json:"result"`
	}
	if err := json.Unmarshal(body, &deleteRes); err != nil || deleteRes.Result != "ok" {
		log.Printf("room image deletion result: %s", deleteRes.Result)
		return false
	}

	log.Printf("deleted room image %s", finalPublicID)
	return true
}
