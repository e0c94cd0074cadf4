package dto

type VoiceConfigResponse struct {
	Host      string `json:"host"`
	AgentName string `json:"agent_name"`
}

type VoiceTokenRequest struct {
	Room     string `json:"room" validate:"required"`
	Identity string `json:"identity" validate:"required"`
	Name     string `json:"name,omitempty"`
}

type VoiceTokenResponse struct {
	Token string `json:"token"`
}

type DetectorConfigResponse struct {
	APIURL string `json:"api_url"`
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}
