package api

import "encoding/json"

// Wire layouts used by the FINDEMY backend for absolute instants.
const (
	DeadlineLayout = "2006-01-02 15:04"    // tugas deadline
	EventLayout    = "2006-01-02 15:04:05" // event tanggal_mulai / tanggal_selesai
)

// Jadwal is one weekly class schedule row.
type Jadwal struct {
	ID              int    `json:"id"`
	Hari            string `json:"hari"`
	JamMulai        string `json:"jam_mulai"`
	JamSelesai      string `json:"jam_selesai"`
	MataKuliah      string `json:"mata_kuliah"`
	Dosen           string `json:"dosen"`
	Ruangan         string `json:"ruangan"`
	PasangPengingat bool   `json:"pasang_pengingat"`
}

// Tugas is one task with a deadline.
type Tugas struct {
	ID              int    `json:"id"`
	Judul           string `json:"judul"`
	Deadline        string `json:"deadline"`
	PasangPengingat bool   `json:"pasang_pengingat"`
}

// Event is one calendar event.
type Event struct {
	ID              int    `json:"id"`
	Judul           string `json:"judul"`
	TanggalMulai    string `json:"tanggal_mulai"`
	TanggalSelesai  string `json:"tanggal_selesai"`
	PasangPengingat bool   `json:"pasang_pengingat"`
}

// User is the profile returned by login.
type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LoginResult carries the session issued by POST /login.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// envelope is the {success, message, data} shape every list endpoint
// responds with.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}
