package model

import "fmt"

// Kind classifies message content.
type Kind int

const (
	KindUnsupported Kind = iota
	KindText
	KindSticker
	KindPhoto
	KindVoice
	KindVideo
	KindDocument
)

var kindNames = [...]string{
	KindUnsupported: "unsupported",
	KindText:        "text",
	KindSticker:     "sticker",
	KindPhoto:       "photo",
	KindVoice:       "voice",
	KindVideo:       "video",
	KindDocument:    "document",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// IsMedia reports whether k is sent by file reference.
func (k Kind) IsMedia() bool {
	switch k {
	case KindSticker, KindPhoto, KindVoice, KindVideo, KindDocument:
		return true
	}
	return false
}

// Payload is the content of one inbound message. The set of implementations
// is closed: Text, Sticker, Photo, Voice, Video, Document and Unsupported.
type Payload interface {
	Kind() Kind
	payload()
}

// Text is a plain text message.
type Text struct {
	Body string
}

// Sticker references a sticker file. Stickers never carry a caption.
type Sticker struct {
	FileID string
}

// Photo references the largest available size of a photo.
type Photo struct {
	FileID  string
	Caption string
}

// Voice references a voice note.
type Voice struct {
	FileID  string
	Caption string
}

// Video references a video.
type Video struct {
	FileID  string
	Caption string
}

// Document references a generic file.
type Document struct {
	FileID  string
	Caption string
}

// Unsupported marks content the relay cannot forward (polls, locations,
// contacts, video notes, ...). Only a fixed notice is sent in its place.
type Unsupported struct{}

func (Text) Kind() Kind        { return KindText }
func (Sticker) Kind() Kind     { return KindSticker }
func (Photo) Kind() Kind       { return KindPhoto }
func (Voice) Kind() Kind       { return KindVoice }
func (Video) Kind() Kind       { return KindVideo }
func (Document) Kind() Kind    { return KindDocument }
func (Unsupported) Kind() Kind { return KindUnsupported }

func (Text) payload()        {}
func (Sticker) payload()     {}
func (Photo) payload()       {}
func (Voice) payload()       {}
func (Video) payload()       {}
func (Document) payload()    {}
func (Unsupported) payload() {}

// Media is the file reference and caption of a media payload.
type Media struct {
	Kind    Kind
	FileID  string
	Caption string
}
