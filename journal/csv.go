package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSVJournal struct {
	orders *csv.Writer
	events *csv.Writer
	of, ef *os.File
}

func NewCSV(ordersPath, eventsPath string) (*CSVJournal, error) {
	of, err := os.Create(ordersPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(eventsPath)
	if err != nil {
		of.Close()
		return nil, err
	}

	ow := csv.NewWriter(of)
	ew := csv.NewWriter(ef)

	if err := ow.Write([]string{"id", "time", "instrument", "name", "side", "quantity", "status", "detail"}); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{"id", "time", "kind", "detail"}); err != nil {
		return nil, err
	}

	ow.Flush()
	if err := ow.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{orders: ow, events: ew, of: of, ef: ef}, nil
}

func (j *CSVJournal) RecordOrder(e OrderEvent) error {
	err := j.orders.Write([]string{
		e.ID,
		e.Time.Format(time.RFC3339),
		e.Instrument,
		e.Name,
		e.Side,
		strconv.FormatInt(e.Quantity, 10),
		e.Status,
		e.Detail,
	})
	if err != nil {
		return err
	}
	j.orders.Flush()
	return j.orders.Error()
}

func (j *CSVJournal) RecordEvent(e SessionEvent) error {
	err := j.events.Write([]string{
		e.ID,
		e.Time.Format(time.RFC3339),
		e.Kind,
		e.Detail,
	})
	if err != nil {
		return err
	}
	j.events.Flush()
	return j.events.Error()
}

func (j *CSVJournal) Close() error {
	j.orders.Flush()
	j.events.Flush()

	if err := j.of.Close(); err != nil {
		j.ef.Close()
		return err
	}
	return j.ef.Close()
}
