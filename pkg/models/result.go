// Package models contains shared data models used across the eveview codebase.
package models

// Record status values reported by the results service.
const (
	RecordStatusProcessing = "processing"
	RecordStatusCompleted  = "completed"
)

// ResultRecord is one analysed upload as returned by the results service.
// All fields are server-defined and opaque to the client.
type ResultRecord struct {
	FileName    string `json:"fileName"    msgpack:"file_name"`
	Description string `json:"description" msgpack:"description"`
	FileType    string `json:"fileType"    msgpack:"file_type"`
	Status      string `json:"status"      msgpack:"status"`
	Result      string `json:"result"      msgpack:"result"`
	ImagePath   string `json:"imagePath"   msgpack:"image_path"`
}

// ResultPage is one page of results plus the total number of matching records.
type ResultPage struct {
	Items      []ResultRecord `json:"items"       msgpack:"items"`
	TotalCount int            `json:"total_count" msgpack:"total_count"`
}

// HasProcessing reports whether any record on the page is still being analysed.
func (p ResultPage) HasProcessing() bool {
	for _, r := range p.Items {
		if r.Status == RecordStatusProcessing {
			return true
		}
	}
	return false
}
