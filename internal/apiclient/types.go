package apiclient

// Photo is a photo as returned by the API
type Photo struct {
	ID   string   `json:"id"`
	Name string   `json:"name,omitempty"`
	URL  string   `json:"url"`
	Tags []string `json:"tags"`
}

// PhotoList is one page of photos
type PhotoList struct {
	Results   []Photo `json:"results"`
	Page      int     `json:"page"`
	PerPage   int     `json:"per_page"`
	PageCount int     `json:"page_count"`
}

// UploadURL is a new photo id and its presigned write URL
type UploadURL struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type uploadURLs struct {
	Results []UploadURL `json:"results"`
}

// Face is a detected face as fractions of the image size
type Face struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type registerName struct {
	Name     string   `json:"name"`
	PhotoIDs []string `json:"photo_ids"`
}

type errorBody struct {
	Error string `json:"error"`
}
