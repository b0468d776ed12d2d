package ai

// TopicKeyword is a word that characterizes a topic, with its c-TF-IDF weight.
type TopicKeyword struct {
	Word  string
	Score float64
}
