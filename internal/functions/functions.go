// Package functions implements the §4.A function classifier: it matches
// (method, pathname, body.stream) against an ordered table of routes and
// returns the first matching canonical Name.
package functions

import "regexp"

// Name enumerates every canonical dispatch kind the gateway recognizes.
type Name string

const (
	ChatComplete         Name = "chat_complete"
	StreamChatComplete   Name = "stream_chat_complete"
	Complete             Name = "complete"
	StreamComplete       Name = "stream_complete"
	Embed                Name = "embed"
	GenerateImage        Name = "generate_image"
	EditImage            Name = "edit_image"
	CreateImageVariation Name = "create_image_variation"
	Moderate             Name = "moderate"
	CreateSpeech         Name = "create_speech"
	CreateTranscription  Name = "create_transcription"
	CreateTranslation    Name = "create_translation"
	CreateModelResponse  Name = "create_model_response"
	StreamModelResponse  Name = "stream_model_response"
	GetModelResponse     Name = "get_model_response"
	DeleteModelResponse  Name = "delete_model_response"
	CreateFile           Name = "create_file"
	ListFiles            Name = "list_files"
	GetFile              Name = "get_file"
	DeleteFile           Name = "delete_file"
	GetFileContent       Name = "get_file_content"
	CreateBatch          Name = "create_batch"
	GetBatch             Name = "get_batch"
	CancelBatch          Name = "cancel_batch"
	ListBatches          Name = "list_batches"
	CreateFineTuningJob  Name = "create_fine_tuning_job"
	GetFineTuningJob     Name = "get_fine_tuning_job"
	ListFineTuningJobs   Name = "list_fine_tuning_jobs"
	CancelFineTuningJob  Name = "cancel_fine_tuning_job"
	ListFineTuningEvents Name = "list_fine_tuning_events"
	UnknownEndpoint      Name = "unknown_endpoint"
)

// streamFlag distinguishes rows that only apply to streaming or
// non-streaming requests from rows indifferent to the stream flag.
type streamFlag int

const (
	streamEither streamFlag = iota
	streamFalse
	streamTrue
)

// route is one row of the classifier table: an anchored path regex, an HTTP
// method, a stream-flag constraint, and the Name it resolves to.
type route struct {
	pattern *regexp.Regexp
	method  string
	stream  streamFlag
	name    Name
}

func anchored(p string) *regexp.Regexp {
	return regexp.MustCompile("^" + p + "$")
}

// table is the ordered classifier. First match wins, so streaming variants
// of a shared path are listed ahead of their non-streaming counterpart only
// where ordering matters (here it doesn't, since the stream flag itself
// discriminates them).
var table = []route{
	{anchored(`/v1/chat/completions`), "POST", streamTrue, StreamChatComplete},
	{anchored(`/v1/chat/completions`), "POST", streamFalse, ChatComplete},
	{anchored(`/v1/completions`), "POST", streamTrue, StreamComplete},
	{anchored(`/v1/completions`), "POST", streamFalse, Complete},
	{anchored(`/v1/embeddings`), "POST", streamEither, Embed},

	{anchored(`/v1/images/generations`), "POST", streamEither, GenerateImage},
	{anchored(`/v1/images/edits`), "POST", streamEither, EditImage},
	{anchored(`/v1/images/variations`), "POST", streamEither, CreateImageVariation},

	{anchored(`/v1/moderations`), "POST", streamEither, Moderate},

	{anchored(`/v1/audio/speech`), "POST", streamEither, CreateSpeech},
	{anchored(`/v1/audio/transcriptions`), "POST", streamEither, CreateTranscription},
	{anchored(`/v1/audio/translations`), "POST", streamEither, CreateTranslation},

	{anchored(`/v1/responses`), "POST", streamTrue, StreamModelResponse},
	{anchored(`/v1/responses`), "POST", streamFalse, CreateModelResponse},
	{anchored(`/v1/responses/[^/]+`), "GET", streamEither, GetModelResponse},
	{anchored(`/v1/responses/[^/]+`), "DELETE", streamEither, DeleteModelResponse},

	{anchored(`/v1/files`), "POST", streamEither, CreateFile},
	{anchored(`/v1/files`), "GET", streamEither, ListFiles},
	{anchored(`/v1/files/[^/]+`), "GET", streamEither, GetFile},
	{anchored(`/v1/files/[^/]+`), "DELETE", streamEither, DeleteFile},
	{anchored(`/v1/files/[^/]+/content`), "GET", streamEither, GetFileContent},

	{anchored(`/v1/batches`), "POST", streamEither, CreateBatch},
	{anchored(`/v1/batches`), "GET", streamEither, ListBatches},
	{anchored(`/v1/batches/[^/]+`), "GET", streamEither, GetBatch},
	{anchored(`/v1/batches/[^/]+/cancel`), "POST", streamEither, CancelBatch},

	{anchored(`/v1/fine_tuning/jobs`), "POST", streamEither, CreateFineTuningJob},
	{anchored(`/v1/fine_tuning/jobs`), "GET", streamEither, ListFineTuningJobs},
	{anchored(`/v1/fine_tuning/jobs/[^/]+`), "GET", streamEither, GetFineTuningJob},
	{anchored(`/v1/fine_tuning/jobs/[^/]+/cancel`), "POST", streamEither, CancelFineTuningJob},
	{anchored(`/v1/fine_tuning/jobs/[^/]+/events`), "GET", streamEither, ListFineTuningEvents},
}

// Classify returns the first Name in the ordered table whose pattern,
// method, and stream-flag constraint all match. A path regex may match
// while the method differs — that row is skipped, not treated as a match
// (§8 testable property). Returns UnknownEndpoint when nothing matches.
func Classify(method, path string, stream bool) Name {
	for _, r := range table {
		if r.method != method {
			continue
		}
		if !r.pattern.MatchString(path) {
			continue
		}
		switch r.stream {
		case streamTrue:
			if !stream {
				continue
			}
		case streamFalse:
			if stream {
				continue
			}
		}
		return r.name
	}
	return UnknownEndpoint
}

// IsStreaming reports whether a Name denotes a streaming dispatch kind.
func IsStreaming(n Name) bool {
	switch n {
	case StreamChatComplete, StreamComplete, StreamModelResponse:
		return true
	default:
		return false
	}
}

// IsEmbedding reports whether a Name is the embeddings function — embed
// functions run only input hooks per §4.G.
func IsEmbedding(n Name) bool {
	return n == Embed
}

// IsChatShaped reports whether a Name produces a chat-completion-shaped or
// responses-API-shaped body eligible for tool capture (§4.B stage 10).
func IsChatShaped(n Name) bool {
	switch n {
	case ChatComplete, StreamChatComplete, CreateModelResponse, StreamModelResponse:
		return true
	default:
		return false
	}
}
