package engine

import (
	"io"

	"github.com/txn2/fedquery/pkg/connector"
	"github.com/txn2/fedquery/pkg/datatype"
)

// ConvertToRuntimeType turns a connector value into its runtime form for
// target. Stream-shaped values become LOBs bound to the source stream;
// everything else is converted with datatype.Transform.
func ConvertToRuntimeType(value any, target datatype.Type) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case *connector.StreamSource:
		value = datatype.NewXML(datatype.NewReaderFactory(v.Reader))
	case *connector.StAXSource:
		b, err := v.Serialize()
		if err != nil {
			return nil, &datatype.TransformationError{Value: "xml stream", Source: datatype.XML, Target: target, Err: err}
		}
		value = datatype.NewXML(datatype.NewMemoryFactory(b))
	case *datatype.InputStreamFactory:
		value = lobFor(v, target)
	case datatype.Streamable, []byte, string:
	case io.Reader:
		value = lobFor(datatype.NewReaderFactory(v), target)
	}
	return datatype.Transform(value, target)
}

func lobFor(f *datatype.InputStreamFactory, target datatype.Type) datatype.Streamable {
	switch target {
	case datatype.Clob, datatype.String, datatype.Char:
		return datatype.NewClob(f)
	case datatype.XML:
		return datatype.NewXML(f)
	default:
		return datatype.NewBlob(f)
	}
}
