package worker

import "fmt"

// Kind identifies the operation a task performs
type Kind string

const (
	KindCreateBucket Kind = "create_bucket"
	KindUploadObject Kind = "upload_object"
)

// Task describes a single provisioning operation.
// Tasks submitted in one batch must not depend on each other.
type Task struct {
	Kind        Kind   `json:"kind"`
	Endpoint    string `json:"endpoint"`
	Location    string `json:"location,omitempty"`
	Versioning  bool   `json:"versioning,omitempty"`
	Bucket      string `json:"bucket,omitempty"`
	PayloadPath string `json:"payload_path,omitempty"`
}

// CreateBucketTask builds a bucket creation task
func CreateBucketTask(endpoint, location string, versioning bool) Task {
	return Task{
		Kind:       KindCreateBucket,
		Endpoint:   endpoint,
		Location:   location,
		Versioning: versioning,
	}
}

// UploadObjectTask builds an object upload task
func UploadObjectTask(bucket, payloadPath, endpoint string) Task {
	return Task{
		Kind:        KindUploadObject,
		Endpoint:    endpoint,
		Bucket:      bucket,
		PayloadPath: payloadPath,
	}
}

// Outcome is the result of one task: either a value (bucket or object
// name) or an error.
type Outcome struct {
	Value string
	Err   error
}

// OK reports whether the task succeeded
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Success wraps a successful result
func Success(value string) Outcome {
	return Outcome{Value: value}
}

// Failure wraps a task error
func Failure(err error) Outcome {
	if err == nil {
		err = fmt.Errorf("task failed without an error")
	}
	return Outcome{Err: err}
}

// Successes returns the values of successful outcomes, keeping their order
func Successes(outcomes []Outcome) []string {
	values := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if o.OK() {
			values = append(values, o.Value)
		}
	}
	return values
}
