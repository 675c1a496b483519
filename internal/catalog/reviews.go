package catalog

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"time"
)

var reviewAuthors = []string{
	"Aarav Sharma", "Priya Patel", "Rohan Mehta", "Ananya Iyer", "Vikram Singh",
	"Sneha Reddy", "Karan Malhotra", "Isha Kapoor", "Arjun Nair", "Meera Joshi",
	"Dev Chatterjee", "Kavya Menon",
}

var reviewComments = map[int][]string{
	5: {
		"Exactly what I needed. Saved me hours of layout work.",
		"Clean files, well organised layers. Would buy again.",
		"Beautiful design and easy to customise for my brand.",
	},
	4: {
		"Great template, a couple of fonts had to be swapped but otherwise perfect.",
		"Solid value for the price. Documentation could be longer.",
		"Looks professional and prints well.",
	},
	3: {
		"Decent starting point, needed more tweaking than expected.",
		"Good design but the colour palette was limited.",
	},
	2: {
		"Files were fine but not quite what the preview suggested.",
	},
	1: {
		"Did not work with my version of the editor.",
	},
}

// reviewEpoch anchors generated review dates so the output never depends on the wall clock.
var reviewEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func seedFor(productID string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(productID))
	return h.Sum64()
}

// GenerateReviews returns n reviews for productID. The output depends only on
// productID and n, so every environment builds the same catalogue.
func GenerateReviews(productID string, n int) []Review {
	if n <= 0 {
		return nil
	}
	seed := seedFor(productID)
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))

	reviews := make([]Review, 0, n)
	for i := 0; i < n; i++ {
		var rating int
		switch r := rng.IntN(100); {
		case r < 50:
			rating = 5
		case r < 80:
			rating = 4
		case r < 92:
			rating = 3
		case r < 97:
			rating = 2
		default:
			rating = 1
		}
		comments := reviewComments[rating]
		reviews = append(reviews, Review{
			ID:       fmt.Sprintf("%s-r%d", productID, i+1),
			Author:   reviewAuthors[rng.IntN(len(reviewAuthors))],
			Rating:   rating,
			Comment:  comments[rng.IntN(len(comments))],
			Date:     reviewEpoch.AddDate(0, 0, rng.IntN(540)).Format("2006-01-02"),
			Verified: rng.IntN(10) < 8,
		})
	}
	return reviews
}

// AverageRating is the mean rating rounded to one decimal place, 0 for no reviews.
func AverageRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return math.Round(float64(sum)/float64(len(reviews))*10) / 10
}
