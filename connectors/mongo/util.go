/*
 * Copyright (C) 2025 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package mongo

import (
	"github.com/adiom-data/wanverify/protocol/iface"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// idToKey renders an _id as a key. Only string ids can be read back by Get.
func idToKey(id bson.RawValue) string {
	if id.Type == bsontype.String {
		return id.StringValue()
	}
	return id.String()
}

// rawToDocument drops the _id and converts the rest to the JSON form via relaxed extended JSON.
func rawToDocument(raw bson.Raw) (iface.Document, error) {
	b, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, err
	}
	doc, err := iface.NormalizeJSON(b)
	if err != nil {
		return nil, err
	}
	delete(doc, "_id")
	return doc, nil
}
