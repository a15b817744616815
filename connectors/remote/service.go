/*
 * Copyright (C) 2025 Adiom, Inc.
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */
package remote

import (
	"errors"
	"fmt"

	"connectrpc.com/connect"
	"github.com/adiom-data/wanverify/protocol/iface"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "wanverify.site.v1.SiteService"

const (
	OpenProcedure          = "/" + ServiceName + "/Open"
	EnsureDatasetProcedure = "/" + ServiceName + "/EnsureDataset"
	KeysProcedure          = "/" + ServiceName + "/Keys"
	GetProcedure           = "/" + ServiceName + "/Get"
	PutProcedure           = "/" + ServiceName + "/Put"
	DeleteProcedure        = "/" + ServiceName + "/Delete"
)

// Message fields. Every request and response is a structpb.Struct.
const (
	fieldDataset = "dataset"
	fieldKey     = "key"
	fieldKeys    = "keys"
	fieldDoc     = "doc"
	fieldFound   = "found"
	fieldDeleted = "deleted"
)

var ErrBadRequest = errors.New("bad request")

func stringField(s *structpb.Struct, name string) (string, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return "", fmt.Errorf("%w: missing %v", ErrBadRequest, name)
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %v is not a string", ErrBadRequest, name)
	}
	return sv.StringValue, nil
}

func docField(s *structpb.Struct, name string) (iface.Document, error) {
	v := s.GetFields()[name].GetStructValue()
	if v == nil {
		return nil, fmt.Errorf("%w: missing %v", ErrBadRequest, name)
	}
	return v.AsMap(), nil
}

func request(fields map[string]any) (*connect.Request[structpb.Struct], error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return connect.NewRequest(s), nil
}

// toConnectError maps store errors onto connect codes so the client can map them back.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, iface.ErrDatasetNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, iface.ErrUnreachable):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, ErrBadRequest):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func fromConnectError(err error) error {
	switch connect.CodeOf(err) {
	case connect.CodeNotFound:
		return fmt.Errorf("%w: %w", iface.ErrDatasetNotFound, err)
	case connect.CodeUnavailable, connect.CodeDeadlineExceeded:
		return fmt.Errorf("%w: %w", iface.ErrUnreachable, err)
	default:
		return err
	}
}
