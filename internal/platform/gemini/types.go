package gemini

// promptData represents the data passed to the prompt template
type promptData struct {
	FileName string
	MIMEType string
}

// ResponseSchema represents the JSON object the model is asked to return
type ResponseSchema struct {
	PlateNumber  string  `json:"plate_number"`
	VIN          string  `json:"vin"`
	Make         string  `json:"make"`
	Model        string  `json:"model"`
	Year         int     `json:"year"`
	OwnerName    string  `json:"owner_name"`
	ExpiryDate   string  `json:"expiry_date"`
	DocumentType string  `json:"document_type"`
	Confidence   float64 `json:"confidence"`
}
