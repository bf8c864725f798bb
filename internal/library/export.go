package library

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"sparkscan/internal/record"
	"sparkscan/internal/spark"
)

var csvHeader = []string{
	"entry_id", "entry_hash", "last_updated", "name", "score", "rank",
	"speed", "stamina", "power", "guts", "wit",
	"turf", "dirt", "sprint", "mile", "medium", "long",
	"front", "pace", "late", "end",
	"gp1", "gp2", "skills", "sparks",
}

type csvSpark struct {
	Origin string `json:"type"`
	spark.Spark
}

// ExportCSV writes one row per record. Skills are joined with "|" and sparks
// are a JSON list tagged with their origin label.
func ExportCSV(w io.Writer, records []record.Record, naming spark.Naming) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		var sparks []csvSpark
		for _, o := range spark.Origins {
			for _, s := range r.Sparks.Of(o) {
				sparks = append(sparks, csvSpark{Origin: o.Label(naming), Spark: s})
			}
		}
		if sparks == nil {
			sparks = []csvSpark{}
		}
		sparksJSON, err := json.Marshal(sparks)
		if err != nil {
			return fmt.Errorf("encode sparks of %s: %w", r.EntryHash, err)
		}
		row := []string{
			strconv.Itoa(r.EntryID), r.EntryHash, r.LastUpdated.Format(time.DateTime), r.Name,
			strconv.Itoa(r.Score), record.ScoreRank(r.Score),
			strconv.Itoa(r.Speed), strconv.Itoa(r.Stamina), strconv.Itoa(r.Power), strconv.Itoa(r.Guts), strconv.Itoa(r.Wit),
			r.Turf, r.Dirt, r.Sprint, r.Mile, r.Medium, r.Long,
			r.Front, r.Pace, r.Late, r.End,
			r.GP1, r.GP2, strings.Join(r.Skills, "|"), string(sparksJSON),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
