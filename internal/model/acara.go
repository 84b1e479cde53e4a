package model

import "time"

// Kendala column values.  The original system stored the obstacle flag as
// one of these two Indonesian strings rather than a boolean, and clients
// depend on them, so the encoding is preserved.
const (
	KendalaAda   = "Ada Kendala"
	KendalaTidak = "Tidak Ada Kendala"
)

// Acara is an event entry linked to a PDU of the same owner.  When an
// obstacle ("kendala") occurred during the event, an evidence file and a
// description are both mandatory; when the flag is cleared both fields are
// nulled again.
//
// Fields:
//
//	ID                – primary key identifier.
//	UserID            – owner of the record (must match the PDU's owner).
//	TanggalAcara      – date the event took place.
//	IDPDU             – referenced PDU record.
//	NamaAcara         – event name.
//	TipeAcara         – event type/category.
//	Kendala           – KendalaAda or KendalaTidak.
//	BuktiDukung       – evidence filename (nil without obstacle).
//	KeteranganKendala – obstacle description (nil without obstacle).
//	CreatedAt         – creation timestamp.
//	UpdatedAt         – last update timestamp.
type Acara struct {
	ID                uint64    `json:"id"`                // acara.id
	UserID            uint64    `json:"userId"`            // acara.user_id
	TanggalAcara      time.Time `json:"tanggalAcara"`      // acara.tanggal_acara
	IDPDU             uint64    `json:"idPDU"`             // acara.id_pdu
	NamaAcara         string    `json:"namaAcara"`         // acara.nama_acara
	TipeAcara         string    `json:"tipeAcara"`         // acara.tipe_acara
	Kendala           string    `json:"kendala"`           // acara.kendala
	BuktiDukung       *string   `json:"buktiDukung"`       // acara.bukti_dukung (nullable)
	KeteranganKendala *string   `json:"keteranganKendala"` // acara.keterangan_kendala (nullable)
	CreatedAt         time.Time `json:"createdAt"`         // acara.created_at
	UpdatedAt         time.Time `json:"updatedAt"`         // acara.updated_at
}

// HasKendala reports whether the record carries the obstacle flag.
func (a *Acara) HasKendala() bool { return a.Kendala == KendalaAda }
