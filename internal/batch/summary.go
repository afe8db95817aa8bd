package batch

import "fmt"

// Summary aggregates a batch.
type Summary struct {
	BatchID            string   `json:"batch_id"`
	TotalDesigns       int      `json:"total_designs"`
	Successful         int      `json:"successful"`
	Failed             int      `json:"failed"`
	Labeled            int      `json:"labeled"`
	CorrectPredictions int      `json:"correct_predictions"`
	Accuracy           string   `json:"accuracy"`
	Results            []Result `json:"results"`
}

// Summarize counts results. Accuracy is correct predictions over successful labeled
// designs, formatted as a percentage with two decimals.
func Summarize(batchID string, results []Result) *Summary {
	s := &Summary{
		BatchID:      batchID,
		TotalDesigns: len(results),
		Results:      results,
	}
	if s.Results == nil {
		s.Results = []Result{}
	}

	for _, r := range results {
		if !r.Success {
			continue
		}
		s.Successful++
		if r.Correct == nil {
			continue
		}
		s.Labeled++
		if *r.Correct {
			s.CorrectPredictions++
		}
	}
	s.Failed = s.TotalDesigns - s.Successful

	accuracy := 0.0
	if s.Labeled > 0 {
		accuracy = float64(s.CorrectPredictions) / float64(s.Labeled) * 100
	}
	s.Accuracy = fmt.Sprintf("%.2f%%", accuracy)
	return s
}
