package model

type BatchResult struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer,omitempty"`
	Timestamps []string `json:"timestamps,omitempty"`
	Success    bool     `json:"success"`
	Error      string   `json:"error,omitempty"`
}

func SuccessResult(question, answer string, timestamps []string) BatchResult {
	if timestamps == nil {
		timestamps = []string{}
	}
	return BatchResult{
		Question:   question,
		Answer:     answer,
		Timestamps: timestamps,
		Success:    true,
	}
}

func FailedResult(question string, err error) BatchResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return BatchResult{
		Question: question,
		Error:    msg,
		Success:  false,
	}
}
