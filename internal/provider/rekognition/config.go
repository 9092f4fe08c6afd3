package rekognition

// Config holds configuration for the AWS Rekognition signal detector
type Config struct {
	// Region is the AWS region where Rekognition service will be used (e.g., "us-east-1")
	Region string

	// MinConfidence discards detections Rekognition itself is unsure about (0-100)
	MinConfidence float32

	// JPEGQuality is used when a frame has to be encoded before upload
	JPEGQuality int
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Region:        "us-east-1",
		MinConfidence: 90,
		JPEGQuality:   90,
	}
}
