package mlclient

// Wire types mirror the prediction service's JSON schemas.

type predictRequest struct {
	Description string `json:"description"`
}

type predictionResult struct {
	Category     string        `json:"category"`
	Confidence   float64       `json:"confidence"`
	Alternatives []Alternative `json:"alternatives"`
}

type predictionMetadata struct {
	ModelVersion     string  `json:"model_version"`
	InferenceTimeMS  float64 `json:"inference_time_ms"`
	PreprocessedText string  `json:"preprocessed_text"`
}

type predictResponse struct {
	Success    bool               `json:"success"`
	Prediction predictionResult   `json:"prediction"`
	Metadata   predictionMetadata `json:"metadata"`
}

type batchRequest struct {
	Descriptions []string `json:"descriptions"`
}

type batchItem struct {
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
}

type batchMetadata struct {
	Total                int     `json:"total"`
	Successful           int     `json:"successful"`
	Failed               int     `json:"failed"`
	TotalInferenceTimeMS float64 `json:"total_inference_time_ms"`
}

type batchResponse struct {
	Success     bool          `json:"success"`
	Predictions []batchItem   `json:"predictions"`
	Metadata    batchMetadata `json:"metadata"`
}

type modelInfoResponse struct {
	Model ModelInfo `json:"model"`
}
