// Package cascade implementa listas ordenadas de regras do tipo "primeira que casa vence".
// Os motores de lote, preço e conciliação descrevem suas decisões como uma Cascade,
// o que permite inserir e testar cada regra de forma independente.
package cascade

// Rule associa um nome auditável a uma função que decide se a regra se aplica.
type Rule[In, Out any] struct {
	Name  string
	Apply func(In) (Out, bool)
}

// Cascade é uma sequência ordenada de regras.
type Cascade[In, Out any] []Rule[In, Out]

// Evaluate devolve o resultado da primeira regra aplicável e o seu nome.
// ok=false quando nenhuma regra se aplica.
func (c Cascade[In, Out]) Evaluate(in In) (out Out, rule string, ok bool) {
	for _, r := range c {
		if res, matched := r.Apply(in); matched {
			return res, r.Name, true
		}
	}
	return out, "", false
}

// Threshold associa um limite superior exclusivo a um valor.
type Threshold[V any] struct {
	Limit int64
	Value V
}

// Below monta uma cascata em que a primeira faixa com x < Limit vence; fallback se nenhuma casar.
func Below[V any](fallback V, thresholds ...Threshold[V]) Cascade[int64, V] {
	rules := make(Cascade[int64, V], 0, len(thresholds)+1)
	for _, th := range thresholds {
		rules = append(rules, Rule[int64, V]{
			Name:  "below",
			Apply: func(x int64) (V, bool) { return th.Value, x < th.Limit },
		})
	}
	rules = append(rules, Rule[int64, V]{
		Name:  "fallback",
		Apply: func(int64) (V, bool) { return fallback, true },
	})
	return rules
}
