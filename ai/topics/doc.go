// Package topics implements ai.TopicModel in process.
//
// Documents are grouped by spherical k-means over their normalized
// embeddings. The number of topics is chosen by mean silhouette; when no
// split separates the documents well they all form a single topic. Clusters
// below the minimum topic size are reported as outliers (topic -1).
//
// Topics are named with class-based TF-IDF: each topic's texts are treated
// as one document, and words frequent in that topic but rare across topics
// score highest.
//
// Seeding is deterministic (farthest-point from the first document), so the
// same input always yields the same topics.
package topics
