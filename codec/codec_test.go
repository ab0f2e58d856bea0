package codec

import (
	"errors"
	"testing"
	"time"

	. "github.com/fulldump/biff"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type Address struct {
	City string
	Zip  string
}

var addressManifest = NewManifest(
	String("city", func(a *Address) *string { return &a.City }),
	String("zip", func(a *Address) *string { return &a.Zip }),
)

type User struct {
	ID      bson.ObjectID
	Name    string
	Age     int
	Score   float64
	Active  bool
	Tags    []string
	Address Address
	Nick    *string
	Created time.Time
}

var userManifest = NewManifest(
	ObjectID("_id", func(u *User) *bson.ObjectID { return &u.ID }),
	String("name", func(u *User) *string { return &u.Name }),
	Int("age", func(u *User) *int { return &u.Age }),
	Float64("score", func(u *User) *float64 { return &u.Score }),
	Bool("active", func(u *User) *bool { return &u.Active }),
	Slice("tags", func(u *User) *[]string { return &u.Tags }, StringType()),
	Doc("address", func(u *User) *Address { return &u.Address }, addressManifest),
	Optional("nick", func(u *User) **string { return &u.Nick }, StringType()),
	Time("created", func(u *User) *time.Time { return &u.Created }),
)

func rawDocument(doc bson.D) bson.Raw {
	raw, err := bson.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return raw
}

func TestRoundTrip(t *testing.T) {

	// Setup
	nick := "brownie"
	user := User{
		ID:      bson.NewObjectID(),
		Name:    "Fulanez",
		Age:     33,
		Score:   7.5,
		Active:  true,
		Tags:    []string{"fish", "plant"},
		Address: Address{City: "Alicante", Zip: "03001"},
		Nick:    &nick,
		Created: time.Date(2024, 5, 17, 10, 30, 0, 0, time.UTC),
	}

	// Run
	doc, errEncode := userManifest.Encode(&user)
	decoded, errDecode := userManifest.Decode(rawDocument(doc))

	// Check
	AssertNil(errEncode)
	AssertNil(errDecode)
	AssertEqual(*decoded, user)
}

func TestRoundTripZeroValues(t *testing.T) {

	// Setup
	user := User{Tags: []string{}}

	// Run
	doc, _ := userManifest.Encode(&user)
	decoded, err := userManifest.Decode(rawDocument(doc))

	// Check
	AssertNil(err)
	AssertEqual(*decoded, user)
}

func TestEncodeFieldOrder(t *testing.T) {

	// Setup
	user := User{Name: "Fulanez", Tags: []string{}}

	// Run
	doc, err := userManifest.Encode(&user)

	// Check: manifest order defines document order, nil optionals are
	// omitted
	AssertNil(err)
	keys := []string{}
	for _, e := range doc {
		keys = append(keys, e.Key)
	}
	AssertEqual(keys, []string{"_id", "name", "age", "score", "active", "tags", "address", "created"})
}

func TestProjectionTolerance(t *testing.T) {

	// Setup: document wider than the manifest
	doc := bson.D{
		{Key: "city", Value: "Teruel"},
		{Key: "zip", Value: "44001"},
		{Key: "population", Value: 35000},
		{Key: "altitude", Value: 915},
	}

	// Run
	address, err := addressManifest.Decode(rawDocument(doc))

	// Check
	AssertNil(err)
	AssertEqual(*address, Address{City: "Teruel", Zip: "44001"})
}

func TestDecodeFieldMissing(t *testing.T) {

	// Setup
	doc := bson.D{
		{Key: "city", Value: "Teruel"},
	}

	// Run
	address, err := addressManifest.Decode(rawDocument(doc))

	// Check: no partial record comes back
	AssertNil(address)
	AssertTrue(errors.Is(err, ErrFieldMissing))

	decodeError := &DecodeError{}
	AssertTrue(errors.As(err, &decodeError))
	AssertEqual(decodeError.Field, "zip")
}

func TestDecodeFieldTypeMismatch(t *testing.T) {

	// Setup
	doc := bson.D{
		{Key: "city", Value: "Teruel"},
		{Key: "zip", Value: 44001},
	}

	// Run
	address, err := addressManifest.Decode(rawDocument(doc))

	// Check
	AssertNil(address)
	AssertTrue(errors.Is(err, ErrFieldTypeMismatch))
}

func TestDecodeNumericWidening(t *testing.T) {

	type Counter struct {
		N int64
		F float64
	}
	manifest := NewManifest(
		Int64("n", func(c *Counter) *int64 { return &c.N }),
		Float64("f", func(c *Counter) *float64 { return &c.F }),
	)

	// int32 widens into int64, int64 converts into float64
	doc := bson.D{
		{Key: "n", Value: int32(7)},
		{Key: "f", Value: int64(21)},
	}

	counter, err := manifest.Decode(rawDocument(doc))

	AssertNil(err)
	AssertEqual(*counter, Counter{N: 7, F: 21})
}

func TestDecodeLossyNumberRejected(t *testing.T) {

	type Counter struct {
		N int64
	}
	manifest := NewManifest(
		Int64("n", func(c *Counter) *int64 { return &c.N }),
	)

	doc := bson.D{
		{Key: "n", Value: 1.5},
	}

	counter, err := manifest.Decode(rawDocument(doc))

	AssertNil(counter)
	AssertTrue(errors.Is(err, ErrFieldTypeMismatch))
}

func TestOptionalAbsent(t *testing.T) {

	// Setup: full document first, to prove decode resets the pointer
	nick := "brownie"
	user := User{Nick: &nick, Tags: []string{}}
	doc, _ := userManifest.Encode(&user)

	// Run: drop 'nick' and decode
	trimmed := bson.D{}
	for _, e := range doc {
		if e.Key == "nick" {
			continue
		}
		trimmed = append(trimmed, e)
	}
	decoded, err := userManifest.Decode(rawDocument(trimmed))

	// Check
	AssertNil(err)
	AssertNil(decoded.Nick)
}

func TestOptionalNull(t *testing.T) {

	// Setup
	doc := bson.D{
		{Key: "city", Value: "Teruel"},
		{Key: "zip", Value: "44001"},
		{Key: "nick", Value: nil},
	}

	type Resident struct {
		Address
		Nick *string
	}
	manifest := NewManifest(
		String("city", func(r *Resident) *string { return &r.City }),
		String("zip", func(r *Resident) *string { return &r.Zip }),
		Optional("nick", func(r *Resident) **string { return &r.Nick }, StringType()),
	)

	// Run
	resident, err := manifest.Decode(rawDocument(doc))

	// Check
	AssertNil(err)
	AssertNil(resident.Nick)
}

func TestNestedDecodeError(t *testing.T) {

	// Setup: nested document with a bad field type
	doc := bson.D{
		{Key: "_id", Value: bson.NewObjectID()},
		{Key: "name", Value: "Fulanez"},
		{Key: "age", Value: 33},
		{Key: "score", Value: 7.5},
		{Key: "active", Value: true},
		{Key: "tags", Value: bson.A{}},
		{Key: "address", Value: bson.D{{Key: "city", Value: 13}, {Key: "zip", Value: "03001"}}},
		{Key: "created", Value: time.Now()},
	}

	// Run
	user, err := userManifest.Decode(rawDocument(doc))

	// Check
	AssertNil(user)
	AssertTrue(errors.Is(err, ErrFieldTypeMismatch))

	decodeError := &DecodeError{}
	AssertTrue(errors.As(err, &decodeError))
	AssertEqual(decodeError.Field, "address")
}

func TestSliceElementMismatch(t *testing.T) {

	type Bag struct {
		Tags []string
	}
	manifest := NewManifest(
		Slice("tags", func(b *Bag) *[]string { return &b.Tags }, StringType()),
	)

	doc := bson.D{
		{Key: "tags", Value: bson.A{"ok", 13}},
	}

	bag, err := manifest.Decode(rawDocument(doc))

	AssertNil(bag)
	AssertTrue(errors.Is(err, ErrFieldTypeMismatch))
}

func TestDuplicatedFieldPanics(t *testing.T) {

	defer func() {
		AssertNotNil(recover())
	}()

	NewManifest(
		String("city", func(a *Address) *string { return &a.City }),
		String("city", func(a *Address) *string { return &a.Zip }),
	)
}
