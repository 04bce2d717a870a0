package auction

import (
	"bytes"
	"reflect"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/oxxion/rtd-server/util/jsonutil"
)

// received keeps a copy of the JSON object a value was decoded from. Anything else, a JSON null
// included, is dropped: such values are encoded from their fields alone.
func received(data []byte) []byte {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	return append([]byte(nil), trimmed...)
}

// marshalMembers encodes the struct v over raw, the object v was decoded from.
//
// Members v does not model are written as received, and so are the modeled members whose value
// did not change. Changed members are rewritten. Zero-valued members absent from raw stay absent.
// Without raw, v is encoded from its fields.
func marshalMembers(raw []byte, v interface{}) ([]byte, error) {
	if len(raw) == 0 {
		return jsonutil.Marshal(v)
	}

	data := append([]byte(nil), raw...)
	value := reflect.ValueOf(v)
	for i := 0; i < value.NumField(); i++ {
		name, ok := memberName(value.Type().Field(i))
		if !ok {
			continue
		}
		field := value.Field(i)

		member, present := rawMember(raw, name)
		if present && unchanged(member, field) {
			continue
		}
		if !present && field.IsZero() {
			continue
		}

		encoded, err := jsonutil.Marshal(field.Interface())
		if err != nil {
			return nil, err
		}
		if data, err = jsonparser.Set(data, encoded, name); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// memberName returns the JSON member name of an exported struct field.
func memberName(field reflect.StructField) (string, bool) {
	if field.PkgPath != "" {
		return "", false
	}
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, true
	}
	return field.Name, true
}

// rawMember returns the JSON text of a member of an object.
func rawMember(data []byte, name string) ([]byte, bool) {
	value, dataType, _, err := jsonparser.Get(data, name)
	if err != nil || dataType == jsonparser.NotExist {
		return nil, false
	}
	if dataType == jsonparser.String {
		quoted := make([]byte, 0, len(value)+2)
		quoted = append(quoted, '"')
		quoted = append(quoted, value...)
		return append(quoted, '"'), true
	}
	return value, true
}

func unchanged(member []byte, field reflect.Value) bool {
	decoded := reflect.New(field.Type())
	if err := jsonutil.Unmarshal(member, decoded.Interface()); err != nil {
		return false
	}
	return reflect.DeepEqual(decoded.Elem().Interface(), field.Interface())
}

type (
	mediaTypes  MediaTypes
	banner      Banner
	video       Video
	bid         Bid
	adUnit      AdUnit
	request     Request
	bidResponse BidResponse
	auctionEnd  AuctionEnd
)

func (m *MediaTypes) UnmarshalJSON(data []byte) error {
	if err := jsonutil.Unmarshal(data, (*mediaTypes)(m)); err != nil {
		return err
	}
	m.raw = received(data)
	return nil
}

func (m MediaTypes) MarshalJSON() ([]byte, error) {
	return marshalMembers(m.raw, mediaTypes(m))
}

func (b *Banner) UnmarshalJSON(data []byte) error {
	if err := jsonutil.Unmarshal(data, (*banner)(b)); err != nil {
		return err
	}
	b.raw = received(data)
	return nil
}

func (b Banner) MarshalJSON() ([]byte, error) {
	return marshalMembers(b.raw, banner(b))
}

func (v *Video) UnmarshalJSON(data []byte) error {
	if err := jsonutil.Unmarshal(data, (*video)(v)); err != nil {
		return err
	}
	v.raw = received(data)
	return nil
}

func (v Video) MarshalJSON() ([]byte, error) {
	return marshalMembers(v.raw, video(v))
}

func (b *Bid) UnmarshalJSON(data []byte) error {
	if err := jsonutil.Unmarshal(data, (*bid)(b)); err != nil {
		return err
	}
	b.raw = received(data)
	return nil
}

func (b Bid) MarshalJSON() ([]byte, error) {
	return marshalMembers(b.raw, bid(b))
}

func (a *AdUnit) UnmarshalJSON(data []byte) error {
	if err := jsonutil.Unmarshal(data, (*adUnit)(a)); err != nil {
		return err
	}
	a.raw = received(data)
	return nil
}

func (a AdUnit) MarshalJSON() ([]byte, error) {
	return marshalMembers(a.raw, adUnit(a))
}

func (r *Request) UnmarshalJSON(data []byte) error {
	if err := jsonutil.Unmarshal(data, (*request)(r)); err != nil {
		return err
	}
	r.raw = received(data)
	return nil
}

func (r Request) MarshalJSON() ([]byte, error) {
	return marshalMembers(r.raw, request(r))
}

func (b *BidResponse) UnmarshalJSON(data []byte) error {
	if err := jsonutil.Unmarshal(data, (*bidResponse)(b)); err != nil {
		return err
	}
	b.raw = received(data)
	return nil
}

func (b BidResponse) MarshalJSON() ([]byte, error) {
	return marshalMembers(b.raw, bidResponse(b))
}

func (a *AuctionEnd) UnmarshalJSON(data []byte) error {
	if err := jsonutil.Unmarshal(data, (*auctionEnd)(a)); err != nil {
		return err
	}
	a.raw = received(data)
	return nil
}

func (a AuctionEnd) MarshalJSON() ([]byte, error) {
	return marshalMembers(a.raw, auctionEnd(a))
}
