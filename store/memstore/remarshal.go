package memstore

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// remarshal converts any marshallable document shape into an ordered
// bson.D by a marshal/unmarshal round trip.
func remarshal(input any) (output bson.D, err error) {
	b, err := bson.Marshal(input)
	if nil != err {
		return
	}
	err = bson.Unmarshal(b, &output)
	return
}
