// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"context"
	"io"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type ErrSuite struct {
	suite.Suite
}

func (s *ErrSuite) TestCode() {
	err := WrapErrCapacityExceeded(50, 50)
	wrapped := errors.Wrap(err, "failed to admit connection")
	s.ErrorIs(wrapped, ErrCapacityExceeded)
	s.Equal(Code(ErrCapacityExceeded), Code(err))
	s.Equal(Code(ErrCapacityExceeded), Code(wrapped))
	s.Equal(TimeoutCode, Code(context.DeadlineExceeded))
	s.Equal(CanceledCode, Code(context.Canceled))
	s.Equal(errUnexpected.errCode, Code(io.EOF))
	s.Equal(int32(0), Code(nil))

	sameCodeErr := newChatError("new error", ErrCapacityExceeded.errCode, false)
	s.True(sameCodeErr.Is(ErrCapacityExceeded))
}

func (s *ErrSuite) TestWrap() {
	s.ErrorIs(WrapErrServiceInternal("nil registry"), ErrServiceInternal)
	s.ErrorIs(WrapErrServiceUnavailable("shutting down"), ErrServiceUnavailable)
	s.ErrorIs(WrapErrCapacityExceeded(50, 50, "accept"), ErrCapacityExceeded)
	s.ErrorIs(WrapErrBadCommandArgs("/room", "not a number"), ErrBadCommandArgs)
	s.ErrorIs(WrapErrUnknownCommand("/dance"), ErrUnknownCommand)
	s.ErrorIs(WrapErrDeliveryFailure(101, io.ErrClosedPipe), ErrDeliveryFailure)
	s.ErrorIs(WrapErrConnectionFault(100, io.ErrClosedPipe), ErrConnectionFault)
	s.ErrorIs(WrapErrSessionNotFound(42), ErrSessionNotFound)
	s.ErrorIs(WrapErrParameterInvalid("room number", "x"), ErrParameterInvalid)
	s.ErrorIs(WrapErrParameterInvalidRange(1, 5, 9), ErrParameterInvalid)
	s.ErrorIs(WrapErrParameterInvalidMsg("bad %s", "address"), ErrParameterInvalid)

	s.NotErrorIs(WrapErrBadCommandArgs("/nick", "empty"), ErrUnknownCommand)
}

func (s *ErrSuite) TestMessage() {
	err := WrapErrBadCommandArgs("/room", "out of range")
	s.Equal("bad command arguments[command=/room]: out of range", err.Error())

	err = WrapErrParameterInvalidRange(1, 5, 9)
	s.Contains(err.Error(), "9 out of range 1 <= value <= 5")

	err = WrapErrParameterInvalid(1, -1, "max-clients")
	s.Equal("max-clients: invalid parameter[expected=1][actual=-1]", err.Error())
}

func (s *ErrSuite) TestRetryableAndType() {
	s.True(IsRetryableErr(WrapErrCapacityExceeded(50, 50)))
	s.False(IsRetryableErr(WrapErrConnectionFault(100, io.EOF)))
	s.False(IsRetryableErr(io.EOF))

	s.Equal(InputError, GetErrorType(WrapErrUnknownCommand("/x")))
	s.Equal(SystemError, GetErrorType(WrapErrServiceInternal("x")))
	s.Equal("input_error", InputError.String())

	s.True(IsCanceledOrTimeout(errors.Wrap(context.Canceled, "serve")))
	s.False(IsCanceledOrTimeout(io.EOF))
}

func (s *ErrSuite) TestCombine() {
	s.Nil(Combine())
	s.Nil(Combine(nil, nil))

	errA := WrapErrDeliveryFailure(100, io.ErrClosedPipe)
	errB := WrapErrDeliveryFailure(101, io.EOF)
	errC := WrapErrConnectionFault(102, io.EOF)

	err := Combine(errA, nil, errB, errC)
	s.ErrorIs(err, ErrDeliveryFailure)
	s.ErrorIs(err, ErrConnectionFault)
	s.Equal(Code(ErrConnectionFault), Code(err))
	s.Contains(err.Error(), "sessionID=100")
	s.Contains(err.Error(), "sessionID=102")
}

func TestErrors(t *testing.T) {
	suite.Run(t, new(ErrSuite))
}
