package storage

const (
	TypeFS = "fs"
	TypeS3 = "s3"
)

// Config holds storage configuration
type Config struct {
	Type            string // "fs" or "s3"
	Dir             string // root directory for fs storage
	Bucket          string
	Region          string
	Endpoint        string // optional, e.g. MinIO
	PathStyle       bool
	AccessKeyID     string // optional, default credential chain otherwise
	SecretAccessKey string
}
