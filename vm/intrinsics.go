// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package vm

import (
	"github.com/sarnowski/lona/bytecode"
	"github.com/sarnowski/lona/process"
	"github.com/sarnowski/lona/value"
)

// callIntrinsic dispatches INTRINSIC instructions and NativeFn calls
// alike: arguments are already sitting in X1..X(argc) by the compiler's
// calling convention, and the result is returned (not written) so both
// callers can decide where it lands.
func callIntrinsic(p *process.Process, id bytecode.IntrinsicID, argc uint8) (value.Value, *IntrinsicError) {
	switch id {
	case bytecode.IAdd:
		return intrinsicAdd(p)
	case bytecode.ISub:
		return intrinsicSub(p)
	case bytecode.IMul:
		return intrinsicMul(p)
	case bytecode.IDiv:
		return intrinsicDiv(p)
	case bytecode.IMod:
		return intrinsicMod(p)
	case bytecode.IEq:
		return intrinsicEq(p)
	case bytecode.ILt:
		return intrinsicLt(p)
	case bytecode.IGt:
		return intrinsicGt(p)
	case bytecode.ILe:
		return intrinsicLe(p)
	case bytecode.IGe:
		return intrinsicGe(p)
	case bytecode.INot:
		return intrinsicNot(p)
	case bytecode.INilP:
		return intrinsicNilP(p)
	case bytecode.IIntegerP:
		return intrinsicIntegerP(p)
	case bytecode.IStringP:
		return intrinsicStringP(p)
	case bytecode.IStr:
		return intrinsicStr(p, argc)
	case bytecode.IKeyword:
		return intrinsicKeyword(p)
	case bytecode.IKeywordP:
		return intrinsicKeywordP(p)
	case bytecode.IName:
		return intrinsicName(p)
	case bytecode.INamespaceP:
		return intrinsicNamespaceP(p)
	case bytecode.ITupleP:
		return intrinsicTupleP(p)
	case bytecode.INth:
		return intrinsicNth(p, argc)
	case bytecode.ICount:
		return intrinsicCount(p)
	case bytecode.ISymbolP:
		return intrinsicSymbolP(p)
	case bytecode.IMapP:
		return intrinsicMapP(p)
	case bytecode.IGet:
		return intrinsicGet(p, argc)
	case bytecode.IPut:
		return intrinsicPut(p)
	case bytecode.IKeys:
		return intrinsicKeys(p)
	case bytecode.IVals:
		return intrinsicVals(p)
	case bytecode.IMeta:
		return intrinsicMeta(p)
	case bytecode.IWithMeta:
		return intrinsicWithMeta(p)
	case bytecode.ICreateNS:
		return intrinsicCreateNS(p)
	case bytecode.IFindNS:
		return intrinsicFindNS(p)
	case bytecode.INSName:
		return intrinsicNSName(p)
	case bytecode.INSMap:
		return intrinsicNSMap(p)
	case bytecode.IFnP:
		return intrinsicFnP(p)
	case bytecode.IVarP:
		return intrinsicVarP(p)
	case bytecode.IIntern:
		return intrinsicIntern(p, argc)
	case bytecode.IVarGet:
		return intrinsicVarGet(p)
	case bytecode.IFirst:
		return intrinsicFirst(p)
	case bytecode.IRest:
		return intrinsicRest(p)
	case bytecode.IEmptyP:
		return intrinsicEmptyP(p)
	case bytecode.IDefRoot:
		return intrinsicDefRoot(p)
	case bytecode.IDefBinding:
		return intrinsicDefBinding(p)
	case bytecode.IDefMeta:
		return intrinsicDefMeta(p)
	case bytecode.INamespace:
		return intrinsicNamespace(p)
	default:
		return value.Value{}, errUnknownIntrinsic(uint16(id))
	}
}
