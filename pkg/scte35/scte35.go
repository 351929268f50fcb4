// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package scte35 generates SCTE-35 splice_insert sections for the demo
// origin, so that downstream break detection has real signals to chew on.
package scte35

import (
	"encoding/base64"

	"github.com/Comcast/gots/v2"
	"github.com/Comcast/gots/v2/scte35"
)

// SchemeIDURI is the EventStream scheme used for binary SCTE-35 signals.
const SchemeIDURI = "urn:scte:scte35:2013:bin"

type SpliceInsertParams struct {
	PtsTime                    uint64
	Duration                   uint64
	SpliceEventID              uint32
	Tier                       uint16
	UniqueProgramID            uint16
	AvailNum                   uint8
	AvailsExpected             uint8
	SpliceEventCancelIndicator bool
	OutOfNetworkIndicator      bool
	SpliceImmediateFlag        bool
	AutoReturn                 bool
}

// CreateSpliceInsertPayload creates a SCTE-35 splice_info_section including CRC.
func CreateSpliceInsertPayload(p SpliceInsertParams) []byte {
	s := scte35.CreateSCTE35()
	s.SetTier(uint16(p.Tier))
	cmd := scte35.CreateSpliceInsertCommand()
	cmd.SetUniqueProgramId(p.UniqueProgramID)
	cmd.SetEventID(p.SpliceEventID)
	cmd.SetAvailNum(p.AvailNum)
	cmd.SetAvailsExpected(p.AvailsExpected)
	cmd.SetIsEventCanceled(p.SpliceEventCancelIndicator)
	if p.Duration != 0 {
		cmd.SetHasDuration(true)
		cmd.SetDuration(gots.PTS(p.Duration))
		cmd.SetIsAutoReturn(p.AutoReturn)
	}
	cmd.SetHasPTS(true)
	cmd.SetPTS(gots.PTS(p.PtsTime))
	cmd.SetIsOut(p.OutOfNetworkIndicator)
	cmd.SetSpliceImmediate(p.SpliceImmediateFlag)
	s.SetCommandInfo(cmd)
	return s.UpdateData()
}

// SpliceOutPayload builds the base64 text for a splice out event starting at
// ptsSeconds and running durationSeconds, as carried in an MPD Event body.
func SpliceOutPayload(eventID uint32, ptsSeconds, durationSeconds float64) string {
	p := SpliceInsertParams{
		PtsTime:               uint64(ptsSeconds*90000) % (1 << 33),
		Duration:              uint64(durationSeconds * 90000),
		SpliceEventID:         eventID,
		Tier:                  4095,
		OutOfNetworkIndicator: true,
		AutoReturn:            true,
	}
	return base64.StdEncoding.EncodeToString(CreateSpliceInsertPayload(p))
}
