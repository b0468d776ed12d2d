package topics

import "github.com/poiesic/khabar/core"

// cosineDistances returns the symmetric matrix of 1 - cos for unit vectors.
func cosineDistances(vecs [][]float32) [][]float64 {
	n := len(vecs)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := 1 - core.Dot(vecs[i], vecs[j])
			if d < 0 {
				d = 0
			}
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}

// seedCentroids picks k starting centroids by farthest-point traversal,
// starting from the first vector. Ties go to the lowest index.
func seedCentroids(vecs [][]float32, dist [][]float64, k int) [][]float32 {
	chosen := []int{0}
	picked := map[int]bool{0: true}
	minDist := append([]float64(nil), dist[0]...)

	for len(chosen) < k {
		next := -1
		for i := range vecs {
			if picked[i] {
				continue
			}
			if next == -1 || minDist[i] > minDist[next] {
				next = i
			}
		}
		if next == -1 {
			break
		}
		chosen = append(chosen, next)
		picked[next] = true
		for i := range minDist {
			if dist[next][i] < minDist[i] {
				minDist[i] = dist[next][i]
			}
		}
	}

	centroids := make([][]float32, len(chosen))
	for i, idx := range chosen {
		centroids[i] = append([]float32(nil), vecs[idx]...)
	}
	return centroids
}

// nearest returns the index of the centroid most similar to vec.
func nearest(vec []float32, centroids [][]float32) int {
	best, bestSim := 0, -2.0
	for i, c := range centroids {
		if sim := core.Dot(vec, c); sim > bestSim {
			best, bestSim = i, sim
		}
	}
	return best
}

// kmeans runs spherical k-means and returns a cluster label per vector.
// Empty clusters keep their previous centroid.
func kmeans(vecs [][]float32, dist [][]float64, k, maxIter int) []int {
	centroids := seedCentroids(vecs, dist, k)
	labels := make([]int, len(vecs))
	for i, v := range vecs {
		labels[i] = nearest(v, centroids)
	}

	dim := len(vecs[0])
	for iter := 0; iter < maxIter; iter++ {
		sums := make([][]float32, len(centroids))
		counts := make([]int, len(centroids))
		for i, v := range vecs {
			c := labels[i]
			if sums[c] == nil {
				sums[c] = make([]float32, dim)
			}
			for d := range v {
				sums[c][d] += v[d]
			}
			counts[c]++
		}
		for c := range centroids {
			if counts[c] > 0 {
				centroids[c] = core.NormalizeVector(sums[c])
			}
		}

		changed := false
		for i, v := range vecs {
			if c := nearest(v, centroids); c != labels[i] {
				labels[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return labels
}

// silhouette returns the mean silhouette coefficient of a labeling.
// Points alone in their cluster, or with no other cluster to compare to,
// contribute 0.
func silhouette(dist [][]float64, labels []int, k int) float64 {
	n := len(labels)
	if n == 0 {
		return 0
	}

	sizes := make([]int, k)
	for _, l := range labels {
		sizes[l]++
	}

	var total float64
	for i := 0; i < n; i++ {
		own := labels[i]
		if sizes[own] < 2 {
			continue
		}

		sums := make([]float64, k)
		for j := 0; j < n; j++ {
			if j != i {
				sums[labels[j]] += dist[i][j]
			}
		}

		a := sums[own] / float64(sizes[own]-1)
		b := -1.0
		for c := 0; c < k; c++ {
			if c == own || sizes[c] == 0 {
				continue
			}
			if mean := sums[c] / float64(sizes[c]); b < 0 || mean < b {
				b = mean
			}
		}
		if b < 0 {
			continue
		}

		denom := a
		if b > denom {
			denom = b
		}
		if denom > 0 {
			total += (b - a) / denom
		}
	}
	return total / float64(n)
}
