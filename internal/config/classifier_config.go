package config

import "time"

type ClassifierConfig interface {
	GetAnalyzeURL() string
	GetPredictURL() string
	GetClassifierTimeout() time.Duration
}

type Classifier struct{}

var _ ClassifierConfig = Classifier{}

func (Classifier) GetAnalyzeURL() string {
	return GetEnv("CLASSIFIER_ANALYZE_URL", "")
}

func (Classifier) GetPredictURL() string {
	return GetEnv("CLASSIFIER_PREDICT_URL", "")
}

func (Classifier) GetClassifierTimeout() time.Duration {
	return getDurationEnv("CLASSIFIER_TIMEOUT", 30*time.Second)
}
