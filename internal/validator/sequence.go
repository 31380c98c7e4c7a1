package validator

import (
	"fmt"
	"sort"

	"github.com/rezonia/fiscal-engine/internal/model"
)

// Sequence checks every (type, year) partition for malformed numbers,
// duplicates and gaps. Each missing integer between the lowest and highest
// observed suffix is reported by its rendered number.
func (v *Validator) Sequence(docs []*model.Document) *Report {
	report := v.sequence(docs)
	report.Counts = count(docs)
	return report.Finish()
}

func (v *Validator) sequence(docs []*model.Document) *Report {
	report := NewReport()
	partitions := make(map[model.SequenceKey]map[int]int)

	for _, doc := range docs {
		if !doc.IsFinalized() {
			continue
		}
		if doc.Number == "" {
			report.AddError("number.missing", fmt.Sprintf("finalized document %s has no number", doc.ID))
			continue
		}

		parsed, err := v.format.Parse(doc.Number)
		if err != nil {
			report.AddError("number.malformed", fmt.Sprintf("%s: %v", doc.Number, err))
			continue
		}
		if parsed.Type != doc.Type {
			report.AddError("number.prefix_mismatch",
				fmt.Sprintf("%s carries the %s prefix but is a %s", doc.Number, parsed.Type, doc.Type))
		}
		if doc.SequenceYear != 0 && parsed.Year != doc.SequenceYear {
			report.AddWarning("number.year_mismatch",
				fmt.Sprintf("%s is stored in sequence year %d", doc.Number, doc.SequenceYear))
		}

		key := model.SequenceKey{Type: parsed.Type, Year: parsed.Year}
		if partitions[key] == nil {
			partitions[key] = make(map[int]int)
		}
		partitions[key][parsed.Seq]++
	}

	keys := make([]model.SequenceKey, 0, len(partitions))
	for key := range partitions {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Year != keys[j].Year {
			return keys[i].Year < keys[j].Year
		}
		return keys[i].Type < keys[j].Type
	})

	for _, key := range keys {
		v.checkPartition(report, key, partitions[key])
	}
	return report
}

func (v *Validator) checkPartition(report *Report, key model.SequenceKey, seen map[int]int) {
	seqs := make([]int, 0, len(seen))
	for seq := range seen {
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)

	for _, seq := range seqs {
		if n := seen[seq]; n > 1 {
			number := v.format.Render(key.Type, key.Year, seq)
			report.Duplicates = append(report.Duplicates, number)
			report.AddError("sequence.duplicate", fmt.Sprintf("%s is used by %d documents", number, n))
		}
	}

	lowest := seqs[0]
	if lowest > 1 {
		report.AddInfo("sequence.start",
			fmt.Sprintf("%s starts at %s", key, v.format.Render(key.Type, key.Year, lowest)))
	}

	next := lowest
	for _, seq := range seqs {
		for ; next < seq; next++ {
			number := v.format.Render(key.Type, key.Year, next)
			report.Gaps = append(report.Gaps, number)
			report.AddError("sequence.gap", fmt.Sprintf("%s is missing from %s", number, key))
		}
		next = seq + 1
	}
}
