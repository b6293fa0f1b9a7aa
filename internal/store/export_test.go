package store

var (
	ClassifyAWSError   = classifyAWSError
	ClassifyMinioError = classifyMinioError
)
