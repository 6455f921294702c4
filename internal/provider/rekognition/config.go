package rekognition

// Config holds configuration for the AWS Rekognition detector
type Config struct {
	// Region is the AWS region where Rekognition service will be used (e.g., "us-east-1")
	Region string

	// JPEGQuality is used when re-encoding frames for DetectFaces.
	JPEGQuality int
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		Region:      "us-east-1",
		JPEGQuality: 92,
	}
}
