package portal

import "time"

// FormKind discriminates the FormData variants.
type FormKind string

const (
	FormUpload FormKind = "upload"
	FormFields FormKind = "fields"
)

// UploadedFile is the payload of a file-based submission.
type UploadedFile struct {
	FileRef          string    `json:"uploadedFileRef" bson:"uploadedFileRef"`
	UploadedAt       time.Time `json:"uploadedAt" bson:"uploadedAt"`
	OriginalFilename string    `json:"originalFilename,omitempty" bson:"originalFilename,omitempty"`
}

// FormData is a tagged union: exactly one of Upload or Fields is set,
// matching Kind.
type FormData struct {
	Kind   FormKind          `json:"kind" bson:"kind"`
	Upload *UploadedFile     `json:"upload,omitempty" bson:"upload,omitempty"`
	Fields map[string]string `json:"fields,omitempty" bson:"fields,omitempty"`
}

func UploadForm(fileRef, originalFilename string, at time.Time) *FormData {
	return &FormData{Kind: FormUpload, Upload: &UploadedFile{FileRef: fileRef, UploadedAt: at, OriginalFilename: originalFilename}}
}

func FieldsForm(fields map[string]string) *FormData {
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return &FormData{Kind: FormFields, Fields: cp}
}

// Validate checks the discriminator against the populated variant.
func (f *FormData) Validate() error {
	if f == nil {
		return Errorf(KindValidation, "form data is required")
	}
	switch f.Kind {
	case FormUpload:
		if f.Upload == nil || f.Fields != nil {
			return Errorf(KindValidation, "upload form data must carry only an uploaded file")
		}
		if f.Upload.FileRef == "" {
			return Errorf(KindValidation, "uploaded file reference is required")
		}
	case FormFields:
		if f.Upload != nil {
			return Errorf(KindValidation, "field form data must not carry an uploaded file")
		}
	default:
		return Errorf(KindValidation, "unknown form data kind %q", f.Kind)
	}
	return nil
}
