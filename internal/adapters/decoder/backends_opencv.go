//go:build opencv

package decoder

func backends(opts Options) []backend {
	return []backend{newPNM(), newOpenCV(opts), newStandard(opts)}
}
