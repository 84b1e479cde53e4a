package model

import "time"

// PDU is a daily operational-order record ("Perintah Dinas Upacara").
// A PDU is created once per duty day by the user on shift and owns the
// day's acara entries.  It may only be edited or deleted by its owner and
// only on the calendar day it was created; after that it is locked, which
// is computed from CreatedAt at request time rather than stored.
//
// Fields:
//
//	ID           – primary key identifier.
//	UserID       – owner of the record.
//	Tanggal      – duty date of the order.
//	NamePDU      – human-entered title of the order.
//	BuktiSurat   – filename of the uploaded operational-order letter.
//	BuktiRondown – filename of the uploaded daily rundown.
//	CreatedAt    – creation timestamp (drives the same-day edit window).
//	UpdatedAt    – last update timestamp.
type PDU struct {
	ID           uint64    `json:"id"`                            // pdu.id
	UserID       uint64    `json:"userId"`                        // pdu.user_id
	Tanggal      time.Time `json:"tanggal"`                       // pdu.tanggal
	NamePDU      string    `json:"namePDU"`                       // pdu.name_pdu
	BuktiSurat   string    `json:"buktiSuratPerintahOperasional"` // pdu.bukti_surat
	BuktiRondown string    `json:"buktiRondownAcaraHarian"`       // pdu.bukti_rondown
	CreatedAt    time.Time `json:"createdAt"`                     // pdu.created_at
	UpdatedAt    time.Time `json:"updatedAt"`                     // pdu.updated_at
}
