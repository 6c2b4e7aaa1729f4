package extraction

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/stellar/go/xdr"
)

// ScValToString renders an ScVal as a short human readable string
func ScValToString(val xdr.ScVal) string {
	switch val.Type {
	case xdr.ScValTypeScvBool:
		return strconv.FormatBool(val.MustB())
	case xdr.ScValTypeScvVoid:
		return "void"
	case xdr.ScValTypeScvU32:
		return fmt.Sprintf("%d", val.MustU32())
	case xdr.ScValTypeScvI32:
		return fmt.Sprintf("%d", val.MustI32())
	case xdr.ScValTypeScvU64:
		return fmt.Sprintf("%d", val.MustU64())
	case xdr.ScValTypeScvI64:
		return fmt.Sprintf("%d", val.MustI64())
	case xdr.ScValTypeScvSymbol:
		return string(val.MustSym())
	case xdr.ScValTypeScvString:
		return string(val.MustStr())
	case xdr.ScValTypeScvAddress:
		addr := val.MustAddress()
		str, err := addr.String()
		if err != nil {
			return "<invalid address>"
		}
		return str
	case xdr.ScValTypeScvBytes:
		return hex.EncodeToString(val.MustBytes())
	default:
		return fmt.Sprintf("<%s>", val.Type.String())
	}
}

// ScValToInterface converts an ScVal into plain Go values for JSON serialization
func ScValToInterface(val xdr.ScVal) interface{} {
	switch val.Type {
	case xdr.ScValTypeScvBool:
		return val.MustB()
	case xdr.ScValTypeScvVoid:
		return nil
	case xdr.ScValTypeScvU32:
		return uint32(val.MustU32())
	case xdr.ScValTypeScvI32:
		return int32(val.MustI32())
	case xdr.ScValTypeScvU64:
		return uint64(val.MustU64())
	case xdr.ScValTypeScvI64:
		return int64(val.MustI64())
	case xdr.ScValTypeScvU128:
		u128 := val.MustU128()
		return map[string]interface{}{
			"hi":  uint64(u128.Hi),
			"lo":  uint64(u128.Lo),
			"hex": fmt.Sprintf("%016x%016x", uint64(u128.Hi), uint64(u128.Lo)),
		}
	case xdr.ScValTypeScvI128:
		i128 := val.MustI128()
		return map[string]interface{}{
			"hi":  int64(i128.Hi),
			"lo":  uint64(i128.Lo),
			"hex": fmt.Sprintf("%016x%016x", uint64(i128.Hi), uint64(i128.Lo)),
		}
	case xdr.ScValTypeScvSymbol:
		return string(val.MustSym())
	case xdr.ScValTypeScvString:
		return string(val.MustStr())
	case xdr.ScValTypeScvAddress:
		return ScValToString(val)
	case xdr.ScValTypeScvBytes:
		return hex.EncodeToString(val.MustBytes())
	case xdr.ScValTypeScvVec:
		vec := val.MustVec()
		if vec == nil {
			return []interface{}{}
		}
		result := make([]interface{}, len(*vec))
		for i, element := range *vec {
			result[i] = ScValToInterface(element)
		}
		return result
	case xdr.ScValTypeScvMap:
		scMap := val.MustMap()
		result := make(map[string]interface{})
		if scMap == nil {
			return result
		}
		for _, entry := range *scMap {
			result[ScValToString(entry.Key)] = ScValToInterface(entry.Val)
		}
		return result
	default:
		return val.Type.String()
	}
}
