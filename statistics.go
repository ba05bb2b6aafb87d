package tomograph

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
)

// History records every EpochLog it observes.
type History struct {
	Logs []EpochLog
}

func NewHistory() *History {
	return &History{Logs: make([]EpochLog, 0, 64)}
}

// Callback returns the Callback to pass to Fit.
func (h *History) Callback() Callback {
	return func(l EpochLog) { h.Logs = append(h.Logs, l) }
}

// Losses returns the recorded losses in epoch order.
func (h *History) Losses() []float64 {
	retVal := make([]float64, len(h.Logs))
	for i, l := range h.Logs {
		retVal[i] = l.Loss
	}
	return retVal
}

// Dump writes the history as CSV with an epoch,loss header.
func (h *History) Dump(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"epoch", "loss"}); err != nil {
		return err
	}
	records := make([][]string, 0, len(h.Logs))
	for _, l := range h.Logs {
		records = append(records, []string{
			strconv.Itoa(l.Epoch),
			strconv.FormatFloat(l.Loss, 'g', -1, 64),
		})
	}
	// WriteAll flushes
	return w.WriteAll(records)
}

// LogCallback logs every epoch at info level.
func LogCallback(l *log.Logger) Callback {
	return func(e EpochLog) {
		l.Info("epoch", "epoch", e.Epoch, "epochs", e.Epochs, "loss", e.Loss)
	}
}
