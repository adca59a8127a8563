package service_test

import (
	"context"
	"testing"

	"vestipos/internal/bizerr"
	"vestipos/internal/dto"
	"vestipos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestRegistrarPago_ActualizaSaldoYEstado(t *testing.T) {
	e := nuevoEntorno()
	f := seedFactura(e.facturaRepo, model.OperacionVenta, model.EstadoReservada, d(150))

	_, err := e.pagos.RegistrarPago(context.Background(), f.ID, vendedor(), dto.RegistrarPagoRequest{
		Monto: d(100), Metodo: "efectivo",
	})
	require.NoError(t, err)
	assert.Equal(t, "50", f.SaldoPendiente.String())
	assert.Equal(t, model.PagoParcial, f.EstadoPago)

	_, err = e.pagos.RegistrarPago(context.Background(), f.ID, vendedor(), dto.RegistrarPagoRequest{
		Monto: d(50), Metodo: "transferencia",
	})
	require.NoError(t, err)
	assert.Equal(t, "0", f.SaldoPendiente.String())
	assert.Equal(t, model.PagoPagado, f.EstadoPago)
}

func TestRegistrarPago_MontoNoPositivo(t *testing.T) {
	e := nuevoEntorno()
	f := seedFactura(e.facturaRepo, model.OperacionVenta, model.EstadoReservada, d(150))

	_, err := e.pagos.RegistrarPago(context.Background(), f.ID, vendedor(), dto.RegistrarPagoRequest{
		Monto: d(0), Metodo: "efectivo",
	})
	assert.True(t, bizerr.IsKind(err, bizerr.InvalidArgument))

	_, err = e.pagos.RegistrarPago(context.Background(), f.ID, vendedor(), dto.RegistrarPagoRequest{
		Monto: d(-10), Metodo: "efectivo",
	})
	assert.True(t, bizerr.IsKind(err, bizerr.InvalidArgument))
}

func TestRegistrarPago_SuperaSaldo(t *testing.T) {
	e := nuevoEntorno()
	f := seedFactura(e.facturaRepo, model.OperacionAlquiler, model.EstadoReservada, d(500))
	f.Sena = d(300)

	// La seña se migra en el primer movimiento: saldo real 200, un pago de 250
	// debe rechazarse.
	_, err := e.pagos.RegistrarPago(context.Background(), f.ID, vendedor(), dto.RegistrarPagoRequest{
		Monto: d(250), Metodo: "efectivo",
	})
	require.Error(t, err)
	assert.True(t, bizerr.IsKind(err, bizerr.ExceedsBalance))
	assert.ErrorContains(t, err, "supera el saldo pendiente")

	// El rechazo no impide un pago válido por el saldo exacto.
	_, err = e.pagos.RegistrarPago(context.Background(), f.ID, vendedor(), dto.RegistrarPagoRequest{
		Monto: d(200), Metodo: "efectivo",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PagoPagado, f.EstadoPago)
}

func TestRegistrarPago_FacturaAnulada(t *testing.T) {
	e := nuevoEntorno()
	f := seedFactura(e.facturaRepo, model.OperacionVenta, model.EstadoAnulada, d(150))

	_, err := e.pagos.RegistrarPago(context.Background(), f.ID, vendedor(), dto.RegistrarPagoRequest{
		Monto: d(100), Metodo: "efectivo",
	})
	assert.True(t, bizerr.IsKind(err, bizerr.Canceled))
}

func TestRegistrarPago_FacturaInexistente(t *testing.T) {
	e := nuevoEntorno()
	_, err := e.pagos.RegistrarPago(context.Background(), uuid.New(), vendedor(), dto.RegistrarPagoRequest{
		Monto: d(100), Metodo: "efectivo",
	})
	assert.True(t, bizerr.IsKind(err, bizerr.NotFound))
}

// La seña legacy es autoritativa solo con el libro vacío; el primer movimiento
// la materializa como entrada retrodatada y el total pagado nunca retrocede.
func TestMigracionSena_TotalNuncaRetrocede(t *testing.T) {
	e := nuevoEntorno()
	f := seedFactura(e.facturaRepo, model.OperacionAlquiler, model.EstadoReservada, d(400))
	f.Sena = d(100)

	// Libro vacío: la seña cuenta como pagado.
	pagado, err := e.pagos.TotalPagado(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, "100", pagado.String())

	// Primer movimiento: migra la seña y registra 50 más.
	_, err = e.pagos.RegistrarPago(context.Background(), f.ID, vendedor(), dto.RegistrarPagoRequest{
		Monto: d(50), Metodo: "efectivo",
	})
	require.NoError(t, err)

	pagado, err = e.pagos.TotalPagado(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, "150", pagado.String())

	// La entrada migrada queda retrodatada a la fecha de la factura.
	pagos, _ := e.pagoRepo.ListByFactura(context.Background(), f.ID)
	require.Len(t, pagos, 2)
	var migrados int
	for _, p := range pagos {
		if p.MigradoDeSena {
			migrados++
			assert.Equal(t, "100", p.Monto.String())
			assert.Equal(t, f.FechaFactura, p.FechaPago)
			assert.Equal(t, "efectivo", p.Metodo)
		}
	}
	assert.Equal(t, 1, migrados)
}

func TestMigracionSena_Idempotente(t *testing.T) {
	e := nuevoEntorno()
	f := seedFactura(e.facturaRepo, model.OperacionAlquiler, model.EstadoReservada, d(400))
	f.Sena = d(100)

	for _, monto := range []float64{50, 50, 50} {
		_, err := e.pagos.RegistrarPago(context.Background(), f.ID, vendedor(), dto.RegistrarPagoRequest{
			Monto: d(monto), Metodo: "efectivo",
		})
		require.NoError(t, err)
	}

	n, _ := e.pagoRepo.CountByFacturaTx(nil, f.ID)
	assert.EqualValues(t, 4, n) // 1 migrada + 3 pagos
	var migrados int
	for _, p := range e.pagoRepo.pagos {
		if p.MigradoDeSena {
			migrados++
		}
	}
	assert.Equal(t, 1, migrados)
}

func TestReembolso_AumentaSaldo(t *testing.T) {
	e := nuevoEntorno()
	f := seedFactura(e.facturaRepo, model.OperacionVenta, model.EstadoReservada, d(200))

	_, err := e.pagos.RegistrarPago(context.Background(), f.ID, vendedor(), dto.RegistrarPagoRequest{
		Monto: d(200), Metodo: "efectivo",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PagoPagado, f.EstadoPago)

	_, err = e.pagos.RegistrarReembolso(context.Background(), f.ID, vendedor(), dto.RegistrarReembolsoRequest{
		Monto: d(80), Metodo: "efectivo",
	})
	require.NoError(t, err)
	assert.Equal(t, "80", f.SaldoPendiente.String())
	assert.Equal(t, model.PagoParcial, f.EstadoPago)
}

func TestPenalidad_SumaAlTotalAdeudado(t *testing.T) {
	e := nuevoEntorno()
	f := seedFactura(e.facturaRepo, model.OperacionAlquiler, model.EstadoDevuelta, d(300))

	_, err := e.pagos.RegistrarPago(context.Background(), f.ID, vendedor(), dto.RegistrarPagoRequest{
		Monto: d(300), Metodo: "efectivo",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PagoPagado, f.EstadoPago)

	notas := "Rotura de cierre"
	_, err = e.pagos.RegistrarPenalidad(context.Background(), f.ID, vendedor(), dto.RegistrarPenalidadRequest{
		Monto: d(50), Notas: &notas,
	})
	require.NoError(t, err)
	assert.Equal(t, "50", f.SaldoPendiente.String())
	assert.Equal(t, model.PagoParcial, f.EstadoPago)

	cuenta, err := e.pagos.EstadoCuenta(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, "50", cuenta.TotalPenalidades.String())
	assert.Equal(t, "300", cuenta.TotalPagado.String())
}

func TestEliminarPago_RequierePermiso(t *testing.T) {
	e := nuevoEntorno()
	f := seedFactura(e.facturaRepo, model.OperacionVenta, model.EstadoReservada, d(200))

	resp, err := e.pagos.RegistrarPago(context.Background(), f.ID, vendedor(), dto.RegistrarPagoRequest{
		Monto: d(100), Metodo: "efectivo",
	})
	require.NoError(t, err)
	pagoID := uuid.MustParse(resp.ID)

	err = e.pagos.EliminarPago(context.Background(), pagoID, vendedor(), dto.EliminarPagoRequest{Motivo: "cargado dos veces"})
	assert.True(t, bizerr.IsKind(err, bizerr.Unauthorized))

	err = e.pagos.EliminarPago(context.Background(), pagoID, supervisor(), dto.EliminarPagoRequest{Motivo: "cargado dos veces"})
	require.NoError(t, err)
	assert.Equal(t, "200", f.SaldoPendiente.String())
	assert.Equal(t, model.PagoImpago, f.EstadoPago)
}

func TestEstadoCuenta_SenaSinMovimientos(t *testing.T) {
	e := nuevoEntorno()
	f := seedFactura(e.facturaRepo, model.OperacionAlquiler, model.EstadoReservada, d(500))
	f.Sena = d(500)

	cuenta, err := e.pagos.EstadoCuenta(context.Background(), f.ID)
	require.NoError(t, err)
	assert.Equal(t, "500", cuenta.TotalPagado.String())
	assert.Equal(t, "0", cuenta.SaldoPendiente.String())
	assert.Equal(t, model.PagoPagado, cuenta.EstadoPago)
	assert.Empty(t, cuenta.Pagos)
}
