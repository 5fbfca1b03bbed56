/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package storage persists search results by run.
package storage

import (
	"context"
	"time"

	"github.com/Comcast/ntta/verifier"

	"github.com/google/uuid"
)

// Record is a query result as stored.
type Record struct {
	Run     string    `json:"run"`
	Network string    `json:"network,omitempty"`
	At      time.Time `json:"at"`

	// Outcome and Explored describe the search that produced the
	// result.
	Outcome  string `json:"outcome"`
	Explored int    `json:"explored"`

	*verifier.QueryResult
}

// Storage is a persistence interface for search results.
type Storage interface {
	// WriteResults adds records to the run.
	WriteResults(ctx context.Context, run string, rs []*Record) error

	// GetResults returns the records of a run in the order they
	// were written.  An unknown run has no records.
	GetResults(ctx context.Context, run string) ([]*Record, error)

	// Runs lists the run ids.
	Runs(ctx context.Context) ([]string, error)

	Close(ctx context.Context) error
}

// NewRunID makes a new run id.
func NewRunID() string {
	return uuid.New().String()
}

// Records makes a Record for each query result.
func Records(run, network string, at time.Time, res *verifier.Results) []*Record {
	acc := make([]*Record, 0, len(res.Queries))
	for _, q := range res.Queries {
		acc = append(acc, &Record{
			Run:         run,
			Network:     network,
			At:          at,
			Outcome:     res.Outcome.String(),
			Explored:    res.Explored,
			QueryResult: q,
		})
	}
	return acc
}
