package dto

type GenerateKeyResponse struct {
	Success bool   `json:"success"`
	// APIKey is returned exactly once; only its hash is persisted.
	APIKey  string `json:"api_key"`
	Message string `json:"message"`
}

type CredentialsStatusResponse struct {
	Success bool   `json:"success"`
	HasKey  bool   `json:"has_key"`
	Status  string `json:"status"`
}

type RevokeKeyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
