package canonical

import "fmt"

// FileObject is the canonical shape returned by the files CRUD surface.
type FileObject struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	Bytes     int64  `json:"bytes"`
	CreatedAt int64  `json:"created_at"`
	Filename  string `json:"filename"`
	Purpose   string `json:"purpose"`
}

func (f FileObject) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("canonical: file object missing 'id'")
	}
	return nil
}

// FileListResponse is the canonical GET /v1/files response.
type FileListResponse struct {
	Object string       `json:"object"`
	Data   []FileObject `json:"data"`
}

func (r FileListResponse) Validate() error { return nil }

// FileDeleteResponse is the canonical DELETE /v1/files/{id} response.
type FileDeleteResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

func (r FileDeleteResponse) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("canonical: file delete response missing 'id'")
	}
	return nil
}
