package courier

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report wire (json) field names rather than Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// partyFields is the required field set of every party, in report order.
var partyFields = []string{"name", "address", "city", "countryCode", "postalCode"}

// ValidatePackage checks the structural completeness of a package for its
// payer type and upper-cases the payer type in place. It never talks to the
// carrier.
func ValidatePackage(pkg *Package) error {
	if len(pkg.Parcels) == 0 {
		return NewValidationError(CodeMissingData, "package validation error - missing `parcels` data in package")
	}
	if pkg.Sender.IsZero() {
		return NewValidationError(CodeMissingData, "package validation error - missing `sender` data in package")
	}
	if pkg.Receiver.IsZero() {
		return NewValidationError(CodeMissingData, "package validation error - missing `receiver` data in package")
	}
	if pkg.PayerType == "" {
		return NewValidationError(CodeMissingData, "package validation error - missing `payerType` field in package")
	}
	payer, ok := ParsePayerType(string(pkg.PayerType))
	if !ok || strings.TrimSpace(string(pkg.PayerType)) == "" {
		return NewValidationError(CodeInvalidPayerType, "package validation error - wrong payer type %q (SENDER or RECEIVER)", pkg.PayerType)
	}
	pkg.PayerType = payer

	if err := validateParty("Sender", pkg.Sender, pkg.PayerType == PayerSender); err != nil {
		return err
	}
	if err := validateParty("Receiver", pkg.Receiver, pkg.PayerType == PayerReceiver); err != nil {
		return err
	}

	for i := range pkg.Parcels {
		if err := validate.Struct(&pkg.Parcels[i]); err != nil {
			return NewValidationError(CodeRequiredFields, "package validation error - Parcel requires the fields: weight").WithCause(err)
		}
	}
	return nil
}

func validateParty(role string, p Party, payer bool) error {
	required := partyFields
	if payer {
		required = append(required[:len(required):len(required)], "fid")
	}

	err := validate.Struct(&p)
	if err == nil && (!payer || p.FID != "") {
		return nil
	}

	var missing []string
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			missing = append(missing, fe.Field())
		}
	}
	if payer && p.FID == "" {
		missing = append(missing, "fid")
	}

	return NewValidationError(CodeRequiredFields,
		"package validation error - %s requires the fields: %s (missing: %s)",
		role, strings.Join(required, ","), strings.Join(missing, ","))
}

var (
	pickupDateRe = regexp.MustCompile(`^[0-9]{4}-(0[1-9]|1[0-2])-(0[1-9]|1[0-9]|2[0-9]|3[0-1])$`)
	pickupTimeRe = regexp.MustCompile(`^(?:[0-1][0-9]|2[0-3])(?::[0-5][0-9])?$`)
)

// ValidPickupDate reports whether s has the YYYY-MM-DD shape with month
// 01-12 and day 01-31. Calendar correctness is not checked.
func ValidPickupDate(s string) bool {
	return pickupDateRe.MatchString(s)
}

// ValidPickupTime reports whether s is HH or HH:MM within 00:00-23:59.
func ValidPickupTime(s string) bool {
	return pickupTimeRe.MatchString(s)
}

// ValidatePickupRequest checks a pickup request before it is sent.
func ValidatePickupRequest(req *PickupRequest) error {
	if len(req.ProtocolIDs) == 0 {
		return NewValidationError(CodeMissingData, "protocols ids are required")
	}
	if !ValidPickupDate(req.Date) {
		return NewValidationError(CodeInvalidDate, "wrong pickupDate format %q (date format: 2017-01-31)", req.Date)
	}
	if !ValidPickupTime(req.TimeFrom) {
		return NewValidationError(CodeInvalidTime, "wrong pickupTimeFrom format %q (time format: 01:00)", req.TimeFrom)
	}
	if !ValidPickupTime(req.TimeTo) {
		return NewValidationError(CodeInvalidTime, "wrong pickupTimeTo format %q (time format: 01:00)", req.TimeTo)
	}
	if req.Contact.IsZero() {
		return NewValidationError(CodeMissingData, "contact info is required")
	}
	if req.PickupAddress.IsZero() {
		return NewValidationError(CodeMissingData, "pickup address is required")
	}
	return nil
}

// NormalizeDocumentOptions upper-cases the options, fills defaults (PDF, A4,
// BIC3) and enforces format compatibility for the given document kind.
func NormalizeDocumentOptions(kind DocumentKind, opts DocumentOptions) (DocumentOptions, error) {
	out := DocumentOptions{
		FileFormat: FileFormat(strings.ToUpper(string(opts.FileFormat))),
		PageFormat: PageFormat(strings.ToUpper(string(opts.PageFormat))),
		LabelType:  LabelType(strings.ToUpper(string(opts.LabelType))),
	}
	if out.FileFormat == "" {
		out.FileFormat = FilePDF
	}
	if out.PageFormat == "" {
		out.PageFormat = PageA4
	}

	if kind == DocumentProtocol {
		if out.PageFormat != PageA4 {
			return out, NewValidationError(CodeInvalidPageFormat, "wrong page format %q for protocol (only A4)", out.PageFormat)
		}
		// Protocols are always rendered as PDF and carry no label type.
		out.FileFormat = FilePDF
		out.LabelType = ""
		return out, nil
	}

	if out.LabelType == "" {
		out.LabelType = LabelBIC3
	}

	switch out.FileFormat {
	case FilePDF, FileZPL, FileEPL:
	default:
		return out, NewValidationError(CodeInvalidFileFormat, "wrong file format %q (available PDF, ZPL, EPL)", out.FileFormat)
	}
	switch out.PageFormat {
	case PageA4, PageLblPrinter:
	default:
		return out, NewValidationError(CodeInvalidPageFormat, "wrong page format %q (available A4, LBL_PRINTER)", out.PageFormat)
	}
	switch out.LabelType {
	case LabelBIC3, LabelBIC3Extended1:
	default:
		return out, NewValidationError(CodeInvalidLabelType, "wrong label type %q (available BIC3, BIC3_EXTENDED1)", out.LabelType)
	}

	if out.FileFormat != FilePDF && out.PageFormat != PageLblPrinter {
		return out, NewValidationError(CodeFormatMismatch, "wrong page format, should be LBL_PRINTER for ZPL and EPL file formats")
	}
	if out.LabelType == LabelBIC3Extended1 && out.PageFormat != PageLblPrinter {
		return out, NewValidationError(CodeLabelTypeMismatch, "wrong page format, should be LBL_PRINTER for BIC3_EXTENDED1 label type")
	}
	return out, nil
}

// NormalizeSessionRef upper-cases the shipping type (DOMESTIC by default)
// and rejects empty references.
func NormalizeSessionRef(ref SessionRef) (SessionRef, error) {
	if ref.IsZero() {
		return ref, NewValidationError(CodeMissingData, "reference ids are required")
	}
	t := ShippingType(strings.ToUpper(string(ref.Type)))
	if t == "" {
		t = ShippingDomestic
	}
	if t != ShippingDomestic && t != ShippingInternational {
		return ref, NewValidationError(CodeInvalidShippingType, "wrong shipping type %q, should be DOMESTIC or INTERNATIONAL", ref.Type)
	}
	ref.Type = t
	return ref, nil
}
